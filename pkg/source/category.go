package source

import "slices"

// Category classifies what kind of catalog a source is.
type Category string

// Catalog categories.
const (
	CategoryPeopleSearch       Category = "people-search"
	CategoryBackgroundCheck    Category = "background-check"
	CategoryPublicRecords      Category = "public-records"
	CategoryPropertyRecords    Category = "property-records"
	CategoryPhoneLookup        Category = "phone-lookup"
	CategoryEmailLookup        Category = "email-lookup"
	CategoryDataAggregator     Category = "data-aggregator"
	CategoryMarketing          Category = "marketing"
	CategoryProfessional       Category = "professional-b2b"
	CategorySocialMedia        Category = "social-media"
	CategoryBreachDatabase     Category = "breach-database"
	CategoryAIService          Category = "ai-service"
	CategoryDirectRelationship Category = "direct-relationship"
	CategoryGrayArea           Category = "gray-area"
	CategoryServiceProvider    Category = "service-provider"
	CategoryPlaceholder        Category = "coverage-placeholder"
)

var categories = []Category{
	CategoryPeopleSearch, CategoryBackgroundCheck, CategoryPublicRecords, CategoryPropertyRecords,
	CategoryPhoneLookup, CategoryEmailLookup, CategoryDataAggregator, CategoryMarketing,
	CategoryProfessional, CategorySocialMedia, CategoryBreachDatabase, CategoryAIService,
	CategoryDirectRelationship, CategoryGrayArea, CategoryServiceProvider, CategoryPlaceholder,
}

// Categories returns every known category.
func Categories() []Category {
	return slices.Clone(categories)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

// excludedCategories are never projection targets: the person opted in directly,
// the data is not resold from a broker, or there is nobody to send a removal to.
var excludedCategories = map[Category]string{
	CategorySocialMedia:        "social media",
	CategoryBreachDatabase:     "breach database",
	CategoryAIService:          "ai service",
	CategoryDirectRelationship: "direct relationship",
	CategoryGrayArea:           "gray area",
	CategoryServiceProvider:    "service provider",
	CategoryPlaceholder:        "coverage placeholder",
}

// Severity ranks how harmful a listing at a source is.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// likelyFields are the fields a catalog of each category usually shows.
// Projected results carry these as hints since nothing was observed directly.
var likelyFields = map[Category][]string{
	CategoryPeopleSearch:    {"name", "age", "address", "phone", "relatives"},
	CategoryBackgroundCheck: {"name", "age", "address", "phone", "email", "criminal_records", "relatives"},
	CategoryPublicRecords:   {"name", "address", "court_records"},
	CategoryPropertyRecords: {"name", "address", "property_value"},
	CategoryPhoneLookup:     {"name", "phone", "address"},
	CategoryEmailLookup:     {"name", "email"},
	CategoryDataAggregator:  {"name", "address", "phone", "email", "age"},
	CategoryMarketing:       {"name", "address", "email", "interests"},
	CategoryProfessional:    {"name", "employer", "job_title", "email", "phone"},
}

// LikelyFields returns the fields a catalog in category c usually exposes.
func LikelyFields(c Category) []string {
	if f, ok := likelyFields[c]; ok {
		return slices.Clone(f)
	}
	return []string{"name"}
}

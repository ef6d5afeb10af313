package confidence

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/exposure/pkg/profile"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func testValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(Config{
		Known: []string{"spokeo", "whitepages", "Been Verified"},
		Now:   func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return v
}

func dob(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func johnSmith() *profile.Reference {
	return &profile.Reference{
		FullName:    "John Smith",
		Addresses:   []profile.Address{{City: "Seattle", State: "WA"}},
		DateOfBirth: dob(1980, time.March, 15), // 46 on testNow
		Phones:      []string{"206-555-0100"},
		Emails:      []string{"john@example.com"},
	}
}

func TestValidateExactMatch(t *testing.T) {
	v := testValidator(t)
	got := v.Validate(johnSmith(), &profile.Extracted{
		Name:   "John Smith",
		City:   "Seattle",
		State:  "Washington",
		Age:    profile.AgeOf(46),
		Phones: []string{"(206) 555-0100"},
	}, "spokeo")

	want := Factors{NameMatch: 30, LocationMatch: 25, AgeMatch: 20, DataCorrelation: 5, SourceReliability: 10}
	if got.Factors != want {
		t.Errorf("Factors = %+v, want %+v", got.Factors, want)
	}
	if got.Score != 90 {
		t.Errorf("Score = %d, want 90", got.Score)
	}
	if got.Classification != Confirmed {
		t.Errorf("Classification = %s, want CONFIRMED", got.Classification)
	}
	if !got.Timestamp.Equal(testNow) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, testNow)
	}
	if v.Thresholds().Action(got.Score) != ActionAutoProceed {
		t.Errorf("Action(%d) = %s, want auto_proceed", got.Score, v.Thresholds().Action(got.Score))
	}
}

func TestValidateCommonNameFalsePositive(t *testing.T) {
	v := testValidator(t)
	got := v.Validate(johnSmith(), &profile.Extracted{
		Name:  "John Smith",
		City:  "Miami",
		State: "FL",
		Age:   profile.AgeOf(22),
	}, "somewhere-else.example")

	if got.Factors.NameMatch != 30 {
		t.Errorf("NameMatch = %d, want 30", got.Factors.NameMatch)
	}
	if got.Score >= 35 {
		t.Errorf("Score = %d, want below the reject threshold", got.Score)
	}
	if got.Score != 34 {
		t.Errorf("Score = %d, want 34 (capped)", got.Score)
	}
	if !hasReason(got, "gate:") {
		t.Errorf("Reasoning = %q, want a gate entry", got.Reasoning)
	}
	if v.Thresholds().Record(got.Score) {
		t.Error("Record() = true for a capped score")
	}
}

func TestValidateAliasMatch(t *testing.T) {
	v := testValidator(t)
	ref := johnSmith()
	ref.Aliases = []string{"Johnny Smith"}

	got := v.Validate(ref, &profile.Extracted{Name: "johnny  smith", City: "seattle", State: "wa"}, "spokeo")
	if got.Factors.NameMatch < 20 {
		t.Errorf("NameMatch = %d, want at least 20", got.Factors.NameMatch)
	}
	if got.Factors.NameMatch != 25 {
		t.Errorf("NameMatch = %d, want 25", got.Factors.NameMatch)
	}
	if got.Factors.LocationMatch != 25 {
		t.Errorf("LocationMatch = %d, want 25", got.Factors.LocationMatch)
	}
}

func TestValidateGateFiresOnSingleMaxFactor(t *testing.T) {
	v := testValidator(t)
	ref := &profile.Reference{FullName: "Ada Lovelace"}
	got := v.Validate(ref, &profile.Extracted{Name: "Ada Lovelace"}, "spokeo")

	if got.Factors.Sum() != 40 {
		t.Errorf("Factors.Sum() = %d, want 40", got.Factors.Sum())
	}
	if got.Score != 34 {
		t.Errorf("Score = %d, want 34", got.Score)
	}
	if got.Classification != Unlikely {
		t.Errorf("Classification = %s, want UNLIKELY", got.Classification)
	}
}

func TestValidateGateDisabled(t *testing.T) {
	v, err := New(Config{
		Thresholds: Thresholds{AutoProceed: 80, ManualReview: 50, Reject: 35, MinFactors: 0},
		Known:      []string{"spokeo"},
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	got := v.Validate(&profile.Reference{FullName: "Ada Lovelace"}, &profile.Extracted{Name: "Ada Lovelace"}, "spokeo")
	if got.Score != 40 {
		t.Errorf("Score = %d, want 40", got.Score)
	}
	if hasReason(got, "gate:") {
		t.Errorf("Reasoning = %q, want no gate entry", got.Reasoning)
	}
}

func TestScoreName(t *testing.T) {
	ref := &profile.Reference{FullName: "Robert Jones", Aliases: []string{"Bob Jones"}}
	tests := []struct {
		name string
		rec  profile.Extracted
		want int
	}{
		{"alias", profile.Extracted{Name: "Bob Jones"}, 25},
		{"exact", profile.Extracted{Name: "ROBERT JONES"}, 30},
		{"punctuation", profile.Extracted{Name: "Robert. Jones,"}, 30},
		{"middle name", profile.Extracted{Name: "Robert Q Jones"}, 28},
		{"substring", profile.Extracted{Name: "Robert"}, 20},
		{"last name", profile.Extracted{Name: "Alice Jones"}, 15},
		{"first name", profile.Extracted{Name: "Robert Brown"}, 10},
		{"typo", profile.Extracted{Name: "Robrt Jnes"}, 10},
		{"fields", profile.Extracted{FirstName: "Robert", LastName: "Jones"}, 28},
		{"last name field", profile.Extracted{LastName: "Jones"}, 15},
		{"first name field", profile.Extracted{FirstName: "robert", LastName: "Brown"}, 10},
		{"fields after unmatched name", profile.Extracted{Name: "R. J.", FirstName: "Robert", LastName: "Jones"}, 28},
		{"no match", profile.Extracted{Name: "Carol White"}, 0},
		{"empty", profile.Extracted{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := scoreName(ref, &tt.rec)
			if got != tt.want {
				t.Errorf("scoreName() = %d (%s), want %d", got, why, tt.want)
			}
			if why == "" {
				t.Error("scoreName() gave no reason")
			}
		})
	}
}

func TestScoreNameFoldsDiacritics(t *testing.T) {
	ref := &profile.Reference{FullName: "José García"}
	if got, why := scoreName(ref, &profile.Extracted{Name: "Jose Garcia"}); got != 30 {
		t.Errorf("scoreName() = %d (%s), want 30", got, why)
	}
}

func TestScoreLocation(t *testing.T) {
	ref := &profile.Reference{Addresses: []profile.Address{
		{City: "Portland", State: "OR"},
		{City: "Seattle", State: "Washington"},
	}}
	tests := []struct {
		name        string
		city, state string
		want        int
	}{
		{"city and state", "Seattle", "WA", 25},
		{"second address wins", "seattle", "washington", 25},
		{"state only", "Spokane", "wa", 15},
		{"city only", "Portland", "ME", 8},
		{"state beats city", "Portland", "Washington", 15},
		{"no match", "Boston", "MA", 0},
		{"nothing listed", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := scoreLocation(ref, &profile.Extracted{City: tt.city, State: tt.state})
			if got != tt.want {
				t.Errorf("scoreLocation(%q, %q) = %d (%s), want %d", tt.city, tt.state, got, why, tt.want)
			}
		})
	}

	if got, _ := scoreLocation(&profile.Reference{}, &profile.Extracted{City: "Seattle", State: "WA"}); got != 0 {
		t.Errorf("scoreLocation(no addresses) = %d, want 0", got)
	}
}

func TestScoreAge(t *testing.T) {
	// Birthday not yet reached on testNow: 45, not 46.
	ref := &profile.Reference{DateOfBirth: dob(1980, time.July, 10)}
	tests := []struct {
		name string
		age  profile.Age
		want int
	}{
		{"exact", profile.AgeOf(45), 20},
		{"one off", profile.AgeOf(46), 15},
		{"free text", profile.AgeText("Age 43"), 15},
		{"five off", profile.AgeOf(40), 10},
		{"nine off", profile.AgeOf(36), 5},
		{"far off", profile.AgeOf(30), 0},
		{"unparseable", profile.AgeText("unknown"), 0},
		{"missing", profile.Age{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := scoreAge(ref, &profile.Extracted{Age: tt.age}, testNow)
			if got != tt.want {
				t.Errorf("scoreAge(%q) = %d (%s), want %d", tt.age, got, why, tt.want)
			}
		})
	}

	if got, _ := scoreAge(&profile.Reference{}, &profile.Extracted{Age: profile.AgeOf(45)}, testNow); got != 0 {
		t.Errorf("scoreAge(no dob) = %d, want 0", got)
	}
}

func TestScoreData(t *testing.T) {
	ref := &profile.Reference{
		Phones: []string{"+1 (206) 555-0100"},
		Emails: []string{"Jane@Example.com"},
	}
	tests := []struct {
		name string
		rec  profile.Extracted
		want int
	}{
		{"phone", profile.Extracted{Phones: []string{"206.555.0100"}}, 5},
		{"email", profile.Extracted{Emails: []string{"jane@example.com "}}, 5},
		{"both", profile.Extracted{Phones: []string{"2065550100"}, Emails: []string{"JANE@EXAMPLE.COM"}}, 15},
		{"different phone", profile.Extracted{Phones: []string{"206-555-0199"}}, 0},
		{"none", profile.Extracted{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := scoreData(ref, &tt.rec)
			if got != tt.want {
				t.Errorf("scoreData() = %d (%s), want %d", got, why, tt.want)
			}
		})
	}
}

func TestScoreSource(t *testing.T) {
	v := testValidator(t)
	tests := map[string]int{
		"spokeo":         10,
		"SPOKEO":         10,
		"been verified":  10,
		"www.spokeo.com": 9,
		"whitepages.com": 9,
		"":               7,
		"abc":            7,
		"unrelated.net":  7,
	}
	for src, want := range tests {
		if got, why := v.scoreSource(src); got != want {
			t.Errorf("scoreSource(%q) = %d (%s), want %d", src, got, why, want)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	v, err := New(Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if got, _ := v.scoreSource("Spokeo"); got != 10 {
		t.Errorf("scoreSource(Spokeo) with default registry = %d, want 10", got)
	}
	if v.Thresholds() != DefaultThresholds() {
		t.Errorf("Thresholds() = %+v, want defaults", v.Thresholds())
	}
}

func TestValidateInvariants(t *testing.T) {
	v := testValidator(t)
	refs := []*profile.Reference{
		nil,
		{},
		johnSmith(),
		{FullName: "A"},
	}
	recs := []*profile.Extracted{
		nil,
		{},
		{Name: "John Smith", City: "Seattle", State: "WA", Age: profile.AgeOf(46),
			Phones: []string{"2065550100"}, Emails: []string{"john@example.com"}},
		{Name: "Jon Smyth", Age: profile.AgeText("around 50")},
		{FirstName: "John", City: "Tacoma", State: "Washington"},
	}
	for _, ref := range refs {
		for _, rec := range recs {
			for _, src := range []string{"", "spokeo", "elsewhere"} {
				got := v.Validate(ref, rec, src)
				if !got.Factors.InBounds() {
					t.Errorf("Factors out of bounds: %+v", got.Factors)
				}
				if got.Score < 0 || got.Score > MaxScore {
					t.Errorf("Score = %d, out of range", got.Score)
				}
				if got.Classification != Classify(got.Score) {
					t.Errorf("Classification = %s for score %d, want %s", got.Classification, got.Score, Classify(got.Score))
				}
				if len(got.Reasoning) == 0 {
					t.Error("Reasoning is empty")
				}
				if got.Factors.Evidence() < 2 && got.Score > 34 {
					t.Errorf("Score = %d with %d factors, want gate to cap at 34", got.Score, got.Factors.Evidence())
				}
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := map[int]Classification{
		100: Confirmed,
		80:  Confirmed,
		79:  Likely,
		60:  Likely,
		59:  Possible,
		40:  Possible,
		39:  Unlikely,
		20:  Unlikely,
		19:  Rejected,
		0:   Rejected,
	}
	for score, want := range tests {
		if got := Classify(score); got != want {
			t.Errorf("Classify(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestThresholdsAction(t *testing.T) {
	th := DefaultThresholds()
	tests := map[int]Action{
		95: ActionAutoProceed,
		80: ActionAutoProceed,
		79: ActionReview,
		50: ActionReview,
		49: ActionLowPriorityReview,
		35: ActionLowPriorityReview,
		34: ActionDiscard,
		0:  ActionDiscard,
	}
	for score, want := range tests {
		if got := th.Action(score); got != want {
			t.Errorf("Action(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"defaults", DefaultThresholds(), false},
		{"equal tiers", Thresholds{AutoProceed: 50, ManualReview: 50, Reject: 50, MinFactors: 1}, false},
		{"descending", Thresholds{AutoProceed: 40, ManualReview: 50, Reject: 35, MinFactors: 2}, true},
		{"reject above review", Thresholds{AutoProceed: 80, ManualReview: 50, Reject: 60, MinFactors: 2}, true},
		{"above max", Thresholds{AutoProceed: 101, ManualReview: 50, Reject: 35, MinFactors: 2}, true},
		{"negative", Thresholds{AutoProceed: 80, ManualReview: 50, Reject: -1, MinFactors: 2}, true},
		{"too many factors", Thresholds{AutoProceed: 80, ManualReview: 50, Reject: 35, MinFactors: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("Validate() error = %v, want ErrInvalidThresholds", err)
			}
		})
	}

	if _, err := New(Config{Thresholds: Thresholds{AutoProceed: 10, ManualReview: 50, Reject: 35}}); !errors.Is(err, ErrInvalidThresholds) {
		t.Errorf("New() error = %v, want ErrInvalidThresholds", err)
	}
}

func hasReason(r Result, prefix string) bool {
	for _, s := range r.Reasoning {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestValidateChicagoScenarios(t *testing.T) {
	v := testValidator(t)
	ref := &profile.Reference{
		FullName:    "John Smith",
		Addresses:   []profile.Address{{City: "Chicago", State: "IL"}},
		DateOfBirth: dob(1982, time.January, 20), // 44 on testNow
		Phones:      []string{"312-555-1234"},
	}

	match := v.Validate(ref, &profile.Extracted{
		Name:   "John Smith",
		City:   "Chicago",
		State:  "IL",
		Age:    profile.AgeText("44"),
		Phones: []string{"312-555-1234"},
	}, "whitepages")
	if match.Score < 80 || match.Classification != Confirmed {
		t.Errorf("exact match = %d %s, want >= 80 CONFIRMED; reasoning %q", match.Score, match.Classification, match.Reasoning)
	}

	other := v.Validate(ref, &profile.Extracted{
		Name:  "John Smith",
		City:  "New York",
		State: "NY",
		Age:   profile.AgeText("25"),
	}, "whitepages")
	if other.Score >= 35 {
		t.Errorf("name-only match = %d, want < 35; reasoning %q", other.Score, other.Reasoning)
	}

	alias := v.Validate(&profile.Reference{
		FullName:  "Robert Johnson",
		Aliases:   []string{"Bob Johnson"},
		Addresses: []profile.Address{{City: "Austin", State: "TX"}},
	}, &profile.Extracted{Name: "Bob Johnson", City: "Austin", State: "TX"}, "")
	if alias.Factors.NameMatch < 20 || alias.Factors.LocationMatch != 25 {
		t.Errorf("alias match factors = %+v, want name >= 20 and location 25", alias.Factors)
	}
}

// Package confidence scores how likely a record observed at a catalog is about
// the person described by a reference profile.
//
// Scoring is a pure function of its inputs plus a clock: it performs no I/O,
// keeps no state between calls, and is safe for concurrent use.
package confidence

import (
	"errors"
	"fmt"
	"time"
)

// Factor bounds.
const (
	MaxNameMatch         = 30
	MaxLocationMatch     = 25
	MaxAgeMatch          = 20
	MaxDataCorrelation   = 15
	MaxSourceReliability = 10
	MaxScore             = 100
)

// ErrInvalidThresholds is returned for threshold sets that are out of range or out of order.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Classification is the tier a score falls into.
type Classification string

// Classifications, highest first. Projected marks results inferred from a
// related catalog rather than observed.
const (
	Confirmed Classification = "CONFIRMED"
	Likely    Classification = "LIKELY"
	Possible  Classification = "POSSIBLE"
	Unlikely  Classification = "UNLIKELY"
	Rejected  Classification = "REJECTED"
	Projected Classification = "PROJECTED"
)

// Classify maps a score to its tier.
func Classify(score int) Classification {
	switch {
	case score >= 80:
		return Confirmed
	case score >= 60:
		return Likely
	case score >= 40:
		return Possible
	case score >= 20:
		return Unlikely
	default:
		return Rejected
	}
}

// Factors are the independent sub-scores a Result is built from.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Factors struct {
	NameMatch         int `json:"name_match"`
	LocationMatch     int `json:"location_match"`
	AgeMatch          int `json:"age_match"`
	DataCorrelation   int `json:"data_correlation"`
	SourceReliability int `json:"source_reliability"`

	// Set only on projected results.
	ProjectionSource string  `json:"projection_source,omitempty"`
	ProjectionWeight float64 `json:"projection_weight,omitempty"`
}

// Sum adds the five sub-scores.
func (f Factors) Sum() int {
	return f.NameMatch + f.LocationMatch + f.AgeMatch + f.DataCorrelation + f.SourceReliability
}

// Evidence counts the match factors above zero. Source reliability is not
// evidence about the person and is not counted.
func (f Factors) Evidence() int {
	n := 0
	for _, v := range []int{f.NameMatch, f.LocationMatch, f.AgeMatch, f.DataCorrelation} {
		if v > 0 {
			n++
		}
	}
	return n
}

// InBounds reports whether every sub-score is within its documented range.
func (f Factors) InBounds() bool {
	return between(f.NameMatch, MaxNameMatch) &&
		between(f.LocationMatch, MaxLocationMatch) &&
		between(f.AgeMatch, MaxAgeMatch) &&
		between(f.DataCorrelation, MaxDataCorrelation) &&
		between(f.SourceReliability, MaxSourceReliability)
}

func between(v, hi int) bool { return v >= 0 && v <= hi }

// Result is the outcome of one evaluation. Reasoning is ordered and never empty.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Result struct {
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Factors        Factors        `json:"factors"`
	Reasoning      []string       `json:"reasoning"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Action is what a collaborator should do with a scored listing.
type Action string

// Actions, most to least automatic.
const (
	ActionAutoProceed       Action = "auto_proceed"
	ActionReview            Action = "review"
	ActionLowPriorityReview Action = "low_priority_review"
	ActionDiscard           Action = "discard"
)

// Thresholds are the score cut-offs collaborators act on.
type Thresholds struct {
	AutoProceed  int `json:"auto_proceed"`  // Remove without review
	ManualReview int `json:"manual_review"` // Queue for review
	Reject       int `json:"reject"`        // Below this no exposure record is created
	MinFactors   int `json:"min_factors"`   // Independent match factors needed to pass Reject
}

// DefaultThresholds returns the standard cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoProceed: 80, ManualReview: 50, Reject: 35, MinFactors: 2}
}

// Validate checks that thresholds are within range and ordered.
func (t Thresholds) Validate() error {
	if t.Reject < 0 || t.AutoProceed > MaxScore {
		return fmt.Errorf("%w: values must be within [0,%d]", ErrInvalidThresholds, MaxScore)
	}
	if t.Reject > t.ManualReview || t.ManualReview > t.AutoProceed {
		return fmt.Errorf("%w: need reject (%d) <= manual review (%d) <= auto proceed (%d)",
			ErrInvalidThresholds, t.Reject, t.ManualReview, t.AutoProceed)
	}
	if t.MinFactors < 0 || t.MinFactors > 4 {
		return fmt.Errorf("%w: min factors %d outside [0,4]", ErrInvalidThresholds, t.MinFactors)
	}
	return nil
}

// Action maps a score to what should happen next.
func (t Thresholds) Action(score int) Action {
	switch {
	case score >= t.AutoProceed:
		return ActionAutoProceed
	case score >= t.ManualReview:
		return ActionReview
	case score >= t.Reject:
		return ActionLowPriorityReview
	default:
		return ActionDiscard
	}
}

// Record reports whether a score is high enough to create an exposure record.
func (t Thresholds) Record(score int) bool {
	return score >= t.Reject
}

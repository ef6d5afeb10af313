package confidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/exposure/pkg/profile"
	"github.com/codeGROOVE-dev/exposure/pkg/source"
)

// Config holds configuration for a Validator.
type Config struct {
	Thresholds Thresholds
	// Known lists catalog keys and names trusted for source reliability.
	// Defaults to every key and name in the built-in directory.
	Known []string
	// Now returns the current time; ages are computed as of Now. Defaults to time.Now.
	Now func() time.Time
}

// Validator scores extracted records against a reference profile.
type Validator struct {
	thresholds Thresholds
	known      map[string]bool
	knownList  []string
	now        func() time.Time
}

// New returns a Validator. The zero Config uses the default thresholds,
// the built-in directory and the wall clock.
func New(cfg Config) (*Validator, error) {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Known == nil {
		cfg.Known = source.Default().Known()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	v := &Validator{
		thresholds: cfg.Thresholds,
		known:      make(map[string]bool, len(cfg.Known)),
		now:        cfg.Now,
	}
	for _, k := range cfg.Known {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || v.known[k] {
			continue
		}
		v.known[k] = true
		v.knownList = append(v.knownList, k)
	}
	return v, nil
}

// Thresholds returns the cut-offs this Validator gates with.
func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Validate scores rec, observed at catalog src, against ref.
// Missing data never fails: the affected factor scores zero and the reason is
// recorded in the result's reasoning.
func (v *Validator) Validate(ref *profile.Reference, rec *profile.Extracted, src string) Result {
	if ref == nil {
		ref = &profile.Reference{}
	}
	if rec == nil {
		rec = &profile.Extracted{}
	}
	now := v.now()

	var f Factors
	var why []string
	var reason string

	f.NameMatch, reason = scoreName(ref, rec)
	why = append(why, reason)
	f.LocationMatch, reason = scoreLocation(ref, rec)
	why = append(why, reason)
	f.AgeMatch, reason = scoreAge(ref, rec, now)
	why = append(why, reason)
	f.DataCorrelation, reason = scoreData(ref, rec)
	why = append(why, reason)
	f.SourceReliability, reason = v.scoreSource(src)
	why = append(why, reason)

	score := min(max(f.Sum(), 0), MaxScore)
	why = append(why, fmt.Sprintf("total: %d+%d+%d+%d+%d = %d",
		f.NameMatch, f.LocationMatch, f.AgeMatch, f.DataCorrelation, f.SourceReliability, score))

	if n := f.Evidence(); n < v.thresholds.MinFactors {
		limit := max(v.thresholds.Reject-1, 0)
		if score > limit {
			why = append(why, fmt.Sprintf("gate: only %d independent match factor(s), need %d; score capped from %d to %d",
				n, v.thresholds.MinFactors, score, limit))
			score = limit
		} else {
			why = append(why, fmt.Sprintf("gate: only %d independent match factor(s), need %d; score already at or below %d",
				n, v.thresholds.MinFactors, limit))
		}
	}

	return Result{
		Score:          score,
		Classification: Classify(score),
		Factors:        f,
		Reasoning:      why,
		Timestamp:      now,
	}
}

// Package propagate projects confirmed listings onto related catalogs.
//
// Many catalogs resell records from the same few aggregators, so a strong
// match on one implies likely presence on its relatives. Projections carry
// a decayed score, are labeled PROJECTED, and never replace a listing that
// was observed directly.
package propagate

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/exposure/pkg/confidence"
	"github.com/codeGROOVE-dev/exposure/pkg/profile"
	"github.com/codeGROOVE-dev/exposure/pkg/source"
)

// Default cut-offs.
const (
	DefaultMinSourceScore    = 50 // Results below this never propagate
	DefaultMinProjectedScore = 45 // Projections below this are dropped

	ParentWeight  = 0.95 // Parent to subsidiary and back
	SiblingWeight = 0.90 // Subsidiaries sharing a parent
)

// Scored is a validated listing at one catalog.
type Scored struct {
	Source string            `json:"source"`
	Result confidence.Result `json:"result"`
}

// Projection is a listing inferred on a catalog that was not observed.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Projection struct {
	Source       string            `json:"source"`
	Result       confidence.Result `json:"result"`
	Origin       string            `json:"origin"`
	Weight       float64           `json:"weight"`
	Relation     string            `json:"relation"`
	Severity     source.Severity   `json:"severity"`
	LikelyFields []string          `json:"likely_fields"`
}

// Stats counts what happened during one projection.
type Stats struct {
	Qualifying            int `json:"qualifying"`
	Projected             int `json:"projected"`
	SkippedExcluded       int `json:"skipped_excluded"`
	SkippedDuplicate      int `json:"skipped_duplicate"`
	SkippedBelowThreshold int `json:"skipped_below_threshold"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMinSourceScore sets the score a result needs before it propagates.
func WithMinSourceScore(n int) Option {
	return func(e *Engine) { e.minSource = n }
}

// WithMinProjectedScore sets the lowest projected score that is kept.
func WithMinProjectedScore(n int) Option {
	return func(e *Engine) { e.minProjected = n }
}

// Engine projects scored results across a source Graph.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	graph        *source.Graph
	logger       *slog.Logger
	minSource    int
	minProjected int
}

// New returns an Engine over graph. A nil graph uses the built-in directory.
func New(graph *source.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:        graph,
		minSource:    DefaultMinSourceScore,
		minProjected: DefaultMinProjectedScore,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.graph == nil {
		e.graph = source.Default()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// edge is one way an origin reaches a target.
type edge struct {
	weight   float64
	relation string
}

// Project infers listings on catalogs related to every result scoring at
// least the minimum source score. Catalogs present anywhere in results are
// never targeted. Output is sorted by score descending, then key.
func (e *Engine) Project(results []Scored, ref *profile.Reference) ([]Projection, Stats) {
	var st Stats

	represented := make(map[string]bool, len(results))
	for _, r := range results {
		represented[key(r.Source)] = true
	}
	hasAddress := ref != nil && ref.HasAddress()

	best := make(map[string]Projection)
	for _, r := range results {
		if r.Result.Score < e.minSource {
			continue
		}
		st.Qualifying++
		origin := key(r.Source)

		targets := e.candidates(origin, hasAddress)
		if len(targets) == 0 {
			e.logger.Debug("no projection candidates", "origin", origin)
			continue
		}

		for _, target := range sortedKeys(targets) {
			ed := targets[target]
			if represented[target] {
				st.SkippedDuplicate++
				continue
			}
			if why, excluded := e.graph.Excluded(target); excluded {
				e.logger.Debug("target excluded", "origin", origin, "target", target, "reason", why)
				st.SkippedExcluded++
				continue
			}
			score := int(math.Round(float64(r.Result.Score) * ed.weight))
			if score < e.minProjected {
				st.SkippedBelowThreshold++
				continue
			}
			if prev, ok := best[target]; ok {
				// Keep the higher score; on a tie the earlier origin stays.
				st.SkippedDuplicate++
				if prev.Result.Score >= score {
					continue
				}
			}
			best[target] = e.projection(origin, target, r.Result, ed, score)
		}
	}

	out := make([]Projection, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Projection) int {
		if c := cmp.Compare(b.Result.Score, a.Result.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	st.Projected = len(out)

	e.logger.Debug("projection complete",
		"qualifying", st.Qualifying,
		"projected", st.Projected,
		"skipped_excluded", st.SkippedExcluded,
		"skipped_duplicate", st.SkippedDuplicate,
		"skipped_below_threshold", st.SkippedBelowThreshold)
	return out, st
}

// candidates collects every target origin reaches, keeping the strongest edge per target.
// An origin missing from the Graph reaches nothing, and property records are
// unreachable by any edge when the profile has no address.
func (e *Engine) candidates(origin string, hasAddress bool) map[string]edge {
	cat, ok := e.graph.CategoryOf(origin)
	if !ok {
		e.logger.Debug("origin not in directory", "origin", origin)
		return nil
	}

	out := make(map[string]edge)
	add := func(target string, ed edge) {
		if target == origin {
			return
		}
		if !hasAddress {
			if c, _ := e.graph.CategoryOf(target); c == source.CategoryPropertyRecords {
				return
			}
		}
		if cur, ok := out[target]; !ok || ed.weight > cur.weight {
			out[target] = ed
		}
	}

	for _, rule := range e.graph.Rules(cat) {
		rel := fmt.Sprintf("category %s -> %s", rule.From, rule.To)
		for _, target := range e.graph.InCategory(rule.To) {
			add(target, edge{weight: rule.Weight, relation: rel})
		}
	}

	if parent, ok := e.graph.Parent(origin); ok {
		add(parent, edge{weight: ParentWeight, relation: "subsidiary of " + parent})
		for _, sib := range e.graph.Siblings(origin) {
			add(sib, edge{weight: SiblingWeight, relation: "sibling under " + parent})
		}
	}
	for _, child := range e.graph.Children(origin) {
		add(child, edge{weight: ParentWeight, relation: "owned by " + origin})
	}
	return out
}

func (e *Engine) projection(origin, target string, from confidence.Result, ed edge, score int) Projection {
	cat, _ := e.graph.CategoryOf(target)
	fields := source.LikelyFields(cat)

	return Projection{
		Source:       target,
		Origin:       origin,
		Weight:       ed.weight,
		Relation:     ed.relation,
		Severity:     e.graph.Severity(target),
		LikelyFields: fields,
		Result: confidence.Result{
			Score:          score,
			Classification: confidence.Projected,
			Factors: confidence.Factors{
				ProjectionSource: origin,
				ProjectionWeight: ed.weight,
			},
			Reasoning: []string{
				fmt.Sprintf("projected from %s (score %d, %s)", origin, from.Score, from.Classification),
				"relation: " + ed.relation,
				fmt.Sprintf("score: round(%d x %.2f) = %d", from.Score, ed.weight, score),
				"likely exposed: " + strings.Join(fields, ", "),
			},
			Timestamp: from.Timestamp,
		},
	}
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedKeys(m map[string]edge) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

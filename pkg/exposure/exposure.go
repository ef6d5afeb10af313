// Package exposure scores a batch of catalog listings against a reference
// profile and projects the strong matches onto related catalogs.
//
// Basic usage:
//
//	s, err := exposure.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := s.Scan(ctx, ref, []exposure.Observation{
//	    {Source: "spokeo", Record: profile.Extracted{Name: "Jane Doe", City: "Denver", State: "CO"}},
//	})
//
// Scanners are safe for concurrent use.
package exposure

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/exposure/pkg/confidence"
	"github.com/codeGROOVE-dev/exposure/pkg/metrics"
	"github.com/codeGROOVE-dev/exposure/pkg/profile"
	"github.com/codeGROOVE-dev/exposure/pkg/propagate"
	"github.com/codeGROOVE-dev/exposure/pkg/source"
)

// Common errors.
var (
	ErrNoProfile   = errors.New("no reference profile")
	ErrEmptySource = errors.New("observation has no source")
)

// DefaultConcurrency is the number of observations validated at once.
const DefaultConcurrency = 8

// Observation is what a collaborator saw at one catalog.
type Observation struct {
	Source string            `json:"source" validate:"required"`
	Record profile.Extracted `json:"record"`
}

// Finding is a validated observation.
type Finding struct {
	Source   string            `json:"source"`
	Result   confidence.Result `json:"result"`
	Action   confidence.Action `json:"action"`
	Severity source.Severity   `json:"severity"`
}

// Report is the outcome of one scan.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Report struct {
	ID          uuid.UUID              `json:"id"`
	Direct      []Finding              `json:"direct"`
	Projected   []propagate.Projection `json:"projected"`
	Stats       propagate.Stats        `json:"stats"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Option configures a Scanner.
type Option func(*config)

//nolint:govet // fieldalignment: intentional layout for readability
type config struct {
	logger      *slog.Logger
	graph       *source.Graph
	thresholds  confidence.Thresholds
	now         func() time.Time
	concurrency int
	metrics     *metrics.Metrics
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithGraph sets the source directory. Defaults to the built-in directory.
func WithGraph(g *source.Graph) Option {
	return func(c *config) { c.graph = g }
}

// WithThresholds sets the action cut-offs.
func WithThresholds(t confidence.Thresholds) Option {
	return func(c *config) { c.thresholds = t }
}

// WithClock sets the time source used for ages and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithConcurrency limits how many observations are validated at once.
func WithConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// WithMetrics records scan outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// Scanner validates and projects scan batches.
type Scanner struct {
	validator   *confidence.Validator
	engine      *propagate.Engine
	graph       *source.Graph
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	concurrency int
}

// New returns a Scanner.
func New(opts ...Option) (*Scanner, error) {
	cfg := &config{
		thresholds:  confidence.DefaultThresholds(),
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.graph == nil {
		cfg.graph = source.Default()
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}

	v, err := confidence.New(confidence.Config{
		Thresholds: cfg.thresholds,
		Known:      cfg.graph.Known(),
		Now:        cfg.now,
	})
	if err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}

	return &Scanner{
		validator:   v,
		engine:      propagate.New(cfg.graph, propagate.WithLogger(cfg.logger)),
		graph:       cfg.graph,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
		now:         cfg.now,
		concurrency: cfg.concurrency,
	}, nil
}

// Graph returns the source directory the Scanner projects across.
func (s *Scanner) Graph() *source.Graph {
	return s.graph
}

// Thresholds returns the action cut-offs in use.
func (s *Scanner) Thresholds() confidence.Thresholds {
	return s.validator.Thresholds()
}

// Validate scores one observation.
func (s *Scanner) Validate(ref *profile.Reference, obs Observation) (Finding, error) {
	if err := checkProfile(ref); err != nil {
		return Finding{}, err
	}
	key := strings.ToLower(strings.TrimSpace(obs.Source))
	if key == "" {
		return Finding{}, ErrEmptySource
	}
	f := s.finding(ref, key, &obs.Record)
	s.metrics.ObserveFinding(string(f.Result.Classification), string(f.Action), f.Result.Score)
	return f, nil
}

// Project infers listings on catalogs related to already scored results.
func (s *Scanner) Project(ref *profile.Reference, results []propagate.Scored) ([]propagate.Projection, propagate.Stats, error) {
	if err := checkProfile(ref); err != nil {
		return nil, propagate.Stats{}, err
	}
	for i, r := range results {
		if strings.TrimSpace(r.Source) == "" {
			return nil, propagate.Stats{}, fmt.Errorf("%w: result %d", ErrEmptySource, i)
		}
	}
	ps, st := s.engine.Project(results, ref)
	s.recordProjection(ps, st)
	return ps, st, nil
}

// Scan validates every observation, then projects the strong matches.
// Cancelling ctx aborts the scan with the context's error.
func (s *Scanner) Scan(ctx context.Context, ref *profile.Reference, obs []Observation) (*Report, error) {
	start := time.Now()
	if err := checkProfile(ref); err != nil {
		return nil, err
	}
	keys := make([]string, len(obs))
	for i, o := range obs {
		keys[i] = strings.ToLower(strings.TrimSpace(o.Source))
		if keys[i] == "" {
			return nil, fmt.Errorf("%w: observation %d", ErrEmptySource, i)
		}
	}

	direct := make([]Finding, len(obs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range obs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			direct[i] = s.finding(ref, keys[i], &obs[i].Record)
			s.logger.Debug("validated",
				"source", keys[i],
				"score", direct[i].Result.Score,
				"classification", direct[i].Result.Classification,
				"action", direct[i].Action)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]propagate.Scored, len(direct))
	for i, f := range direct {
		scored[i] = propagate.Scored{Source: f.Source, Result: f.Result}
		s.metrics.ObserveFinding(string(f.Result.Classification), string(f.Action), f.Result.Score)
	}
	projected, st := s.engine.Project(scored, ref)
	s.recordProjection(projected, st)

	slices.SortStableFunc(direct, func(a, b Finding) int {
		return cmp.Compare(b.Result.Score, a.Result.Score)
	})

	r := &Report{
		ID:          uuid.New(),
		Direct:      direct,
		Projected:   projected,
		Stats:       st,
		GeneratedAt: s.now(),
	}
	elapsed := time.Since(start)
	s.metrics.ObserveScanLatency(elapsed)
	s.logger.Info("scan complete",
		"id", r.ID,
		"observations", len(obs),
		"auto_proceed", countAction(direct, confidence.ActionAutoProceed),
		"review", countAction(direct, confidence.ActionReview),
		"projected", st.Projected,
		"duration", elapsed)
	return r, nil
}

func (s *Scanner) finding(ref *profile.Reference, key string, rec *profile.Extracted) Finding {
	res := s.validator.Validate(ref, rec, key)
	return Finding{
		Source:   key,
		Result:   res,
		Action:   s.validator.Thresholds().Action(res.Score),
		Severity: s.graph.Severity(key),
	}
}

func (s *Scanner) recordProjection(ps []propagate.Projection, st propagate.Stats) {
	for _, p := range ps {
		s.metrics.IncrementProjection(string(p.Severity))
	}
	s.metrics.AddSkipped("excluded", st.SkippedExcluded)
	s.metrics.AddSkipped("duplicate", st.SkippedDuplicate)
	s.metrics.AddSkipped("below_threshold", st.SkippedBelowThreshold)
}

func checkProfile(ref *profile.Reference) error {
	if err := ref.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrNoProfile, err)
	}
	return nil
}

func countAction(fs []Finding, a confidence.Action) int {
	n := 0
	for _, f := range fs {
		if f.Action == a {
			n++
		}
	}
	return n
}

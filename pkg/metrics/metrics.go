// Package metrics provides Prometheus instrumentation for exposure scans.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records scan outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Validated listings by classification and action
	Findings *prometheus.CounterVec

	// Projected listings by target severity
	Projections *prometheus.CounterVec

	// Projection candidates skipped, by reason
	Skipped *prometheus.CounterVec

	// Distribution of validated scores
	Scores prometheus.Histogram

	// Full scan latency, validation plus projection
	ScanLatency prometheus.Histogram
}

// New registers scan metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_findings_total",
			Help: "Validated listings by classification and action",
		}, []string{"classification", "action"}),

		Projections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_projections_total",
			Help: "Projected listings by target severity",
		}, []string{"severity"}),

		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_projection_skipped_total",
			Help: "Projection candidates skipped by reason",
		}, []string{"reason"}), // reason: "excluded", "duplicate", "below_threshold"

		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "exposure_finding_score",
			Help:    "Confidence scores of validated listings",
			Buckets: []float64{10, 20, 35, 40, 50, 60, 70, 80, 90, 100},
		}),

		ScanLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "exposure_scan_duration_seconds",
			Help:    "Duration of a full scan including projection",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
	}
}

// ObserveFinding records one validated listing.
func (m *Metrics) ObserveFinding(classification, action string, score int) {
	if m != nil {
		m.Findings.WithLabelValues(classification, action).Inc()
		m.Scores.Observe(float64(score))
	}
}

// IncrementProjection records one projected listing.
func (m *Metrics) IncrementProjection(severity string) {
	if m != nil {
		m.Projections.WithLabelValues(severity).Inc()
	}
}

// AddSkipped records candidates skipped for reason.
func (m *Metrics) AddSkipped(reason string, n int) {
	if m != nil && n > 0 {
		m.Skipped.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveScanLatency records the duration of one scan.
func (m *Metrics) ObserveScanLatency(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}

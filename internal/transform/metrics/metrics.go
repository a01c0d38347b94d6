package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transform module.
type Metrics struct {
	// Row outcomes by source and result
	Rows *prometheus.CounterVec

	// Row failures by phase
	Failures *prometheus.CounterVec

	// Field changes written, by source
	Changes *prometheus.CounterVec

	// Batch processing latency
	BatchLatency prometheus.Histogram
}

// New creates a new Metrics instance with all transform metrics registered.
func New() *Metrics {
	return &Metrics{
		Rows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_transform_rows_total",
			Help: "Staged rows processed by source and result",
		}, []string{"source", "result"}), // result: "matched", "created", "failed"

		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_transform_failures_total",
			Help: "Row failures by phase",
		}, []string{"phase"}),

		Changes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_transform_field_changes_total",
			Help: "Normalized field changes written, by source",
		}, []string{"source"}),

		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "draftline_transform_batch_duration_seconds",
			Help:    "Duration of full batch transformation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementRow records one row outcome.
func (m *Metrics) IncrementRow(source, result string) {
	if m != nil {
		m.Rows.WithLabelValues(source, result).Inc()
	}
}

// IncrementFailure records a row failure in a phase.
func (m *Metrics) IncrementFailure(phase string) {
	if m != nil {
		m.Failures.WithLabelValues(phase).Inc()
	}
}

// AddChanges records field changes written for a source.
func (m *Metrics) AddChanges(source string, n int) {
	if m != nil {
		m.Changes.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveBatchLatency records the duration of one batch.
func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}

// Package metrics exposes Prometheus collectors for the snapshot
// feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Operations *prometheus.CounterVec
	Changed    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_snapshot_operations_total",
			Help: "Snapshot lifecycle operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Changed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "draftline_snapshot_changed_records",
			Help:    "Records flagged as changed per snapshot.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveChanged(n int) {
	if m == nil {
		return
	}
	m.Changed.Observe(float64(n))
}

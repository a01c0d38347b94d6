package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation module.
type Metrics struct {
	// Conflicts detected by field, severity and resulting status
	Conflicts *prometheus.CounterVec

	// Manual overrides by field
	Overrides *prometheus.CounterVec
}

// New creates a new Metrics instance with all reconciliation metrics registered.
func New() *Metrics {
	return &Metrics{
		Conflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_reconcile_conflicts_total",
			Help: "Conflicts detected by field, severity and resolution status",
		}, []string{"field", "severity", "status"}),

		Overrides: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_reconcile_overrides_total",
			Help: "Manual conflict overrides by field",
		}, []string{"field"}),
	}
}

// IncrementConflict records one detected conflict.
func (m *Metrics) IncrementConflict(field, severity, status string) {
	if m != nil {
		m.Conflicts.WithLabelValues(field, severity, status).Inc()
	}
}

// IncrementOverride records one manual override.
func (m *Metrics) IncrementOverride(field string) {
	if m != nil {
		m.Overrides.WithLabelValues(field).Inc()
	}
}

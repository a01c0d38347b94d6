// Package metrics exposes Prometheus collectors for the quality
// feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Reports  *prometheus.CounterVec
	Checks   *prometheus.CounterVec
	Outliers *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Reports: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_quality_reports_total",
			Help: "Quality reports generated, by verdict.",
		}, []string{"status"}),
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_quality_check_failures_total",
			Help: "Table-level check failures, by check name.",
		}, []string{"check"}),
		Outliers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "draftline_quality_outliers_total",
			Help: "Statistical outliers flagged, by type and severity.",
		}, []string{"type", "severity"}),
	}
}

func (m *Metrics) IncrementReport(status string) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementCheckFailure(check string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(check).Inc()
}

func (m *Metrics) IncrementOutlier(outlierType, severity string) {
	if m == nil {
		return
	}
	m.Outliers.WithLabelValues(outlierType, severity).Inc()
}

// Package quality validates fused prospect data: per-value range and
// statistical checks at the record level, structural checks at the
// table level, and a report that decides whether an extraction's output
// is trustworthy.
package quality

import (
	"time"

	"draftline/pkg/domain"
)

// OutlierSeverity classifies a statistical anomaly.
type OutlierSeverity string

const (
	SeverityNormal   OutlierSeverity = "NORMAL"
	SeverityWarning  OutlierSeverity = "WARNING"
	SeverityCritical OutlierSeverity = "CRITICAL"
)

// Outlier describes one statistical anomaly on a value.
type Outlier struct {
	Type      string          `json:"type"` // "zscore" or "day_over_day"
	Field     string          `json:"field"`
	Value     float64         `json:"value"`
	Statistic float64         `json:"statistic"` // z-score or percent change
	Threshold float64         `json:"threshold"`
	Severity  OutlierSeverity `json:"severity"`
}

// GradeValidationResult is the per-(prospect, source) outcome of the
// record-level checks.
type GradeValidationResult struct {
	ProspectID domain.ProspectID `json:"prospect_id"`
	Source     domain.Source     `json:"source"`
	Valid      bool              `json:"valid"`
	Violations []string          `json:"violations,omitempty"`
	Outliers   []Outlier         `json:"outliers,omitempty"`
	Severity   OutlierSeverity   `json:"severity"`
}

// CheckResult is one table-level check outcome. Critical checks fail
// the whole report.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Errors   int    `json:"errors"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}

// ReportStatus is the overall verdict.
type ReportStatus string

const (
	StatusPass         ReportStatus = "PASS"
	StatusPassWarnings ReportStatus = "PASS_WITH_WARNINGS"
	StatusFail         ReportStatus = "FAIL"
)

// Report is the full quality verdict for one extraction.
type Report struct {
	ExtractionID domain.ExtractionID     `json:"extraction_id"`
	Status       ReportStatus            `json:"status"`
	Checks       []CheckResult           `json:"checks"`
	Records      []GradeValidationResult `json:"records,omitempty"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// deriveStatus folds check and record outcomes into the verdict.
func deriveStatus(checks []CheckResult, records []GradeValidationResult) ReportStatus {
	warnings := false
	for _, c := range checks {
		if !c.Passed {
			if c.Critical {
				return StatusFail
			}
			warnings = true
		}
	}
	for _, r := range records {
		switch r.Severity {
		case SeverityCritical:
			return StatusFail
		case SeverityWarning:
			warnings = true
		}
	}
	if warnings {
		return StatusPassWarnings
	}
	return StatusPass
}

// Metric is one persisted quality measurement, keyed by date and the
// optional position/source dimensions.
type Metric struct {
	Date     time.Time       `json:"date"`
	Position domain.Position `json:"position,omitempty"`
	Source   domain.Source   `json:"source,omitempty"`
	Name     string          `json:"name"`
	Value    float64         `json:"value"`
}

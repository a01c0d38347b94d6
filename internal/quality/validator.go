package quality

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"draftline/internal/canonical"
	"draftline/internal/lineage"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/requestcontext"
)

// Statistical thresholds. Sample stdev, cohort of at least minCohort.
const (
	zWarning       = 2.0
	zCritical      = 3.0
	dayWarningPct  = 20.0
	dayCriticalPct = 50.0
	minCohort      = 3
)

// PrimarySource is the feed every prospect must have a grade from.
const PrimarySource = domain.SourceNFL

// HistoryReader reads the ledger for day-over-day comparisons.
type HistoryReader interface {
	History(ctx context.Context, entityType, entityID, field string) ([]lineage.Entry, error)
}

// Validator runs the record- and table-level quality checks.
type Validator struct {
	prospects canonical.Store
	values    canonical.SourceValueStore
	history   HistoryReader
	logger    *slog.Logger
}

func NewValidator(prospects canonical.Store, values canonical.SourceValueStore, history HistoryReader, logger *slog.Logger) *Validator {
	return &Validator{prospects: prospects, values: values, history: history, logger: logger}
}

// ValidateGrade runs the per-value checks for one (prospect, source)
// grade: canonical range, cohort outliers, day-over-day swing.
func (v *Validator) ValidateGrade(ctx context.Context, p *canonical.Prospect, source domain.Source) (GradeValidationResult, error) {
	result := GradeValidationResult{
		ProspectID: p.ID,
		Source:     source,
		Valid:      true,
		Severity:   SeverityNormal,
	}

	value, err := v.values.Get(ctx, p.ID, source, "grade")
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "read grade")
	}
	grade, ok := value.AsFloat()
	if !ok {
		result.Valid = false
		result.Violations = append(result.Violations, "grade is not numeric")
		result.Severity = SeverityCritical
		return result, nil
	}

	// Range check fails closed: an out-of-range grade is rejected here,
	// clamping is normalization's last resort only.
	if grade < 5.0 || grade > 10.0 {
		result.Valid = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("grade %.1f outside canonical bounds [5.0, 10.0]", grade))
		result.Severity = SeverityCritical
	}

	cohort, err := v.values.CohortValues(ctx, p.Position, source, "grade")
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "load cohort")
	}
	// The candidate's own grade is part of the stored cohort; drop one
	// occurrence so it is judged against its peers, not against itself.
	peers := excludeOne(cohort, grade)
	if len(peers) >= minCohort {
		if z, ok := ZScore(grade, peers); ok {
			abs := math.Abs(z)
			switch {
			case abs >= zCritical:
				result.Outliers = append(result.Outliers, Outlier{
					Type: "zscore", Field: "grade", Value: grade,
					Statistic: z, Threshold: zCritical, Severity: SeverityCritical,
				})
			case abs >= zWarning:
				result.Outliers = append(result.Outliers, Outlier{
					Type: "zscore", Field: "grade", Value: grade,
					Statistic: z, Threshold: zWarning, Severity: SeverityWarning,
				})
			}
		}
	}

	if prior, ok, err := v.priorGrade(ctx, p.ID, source); err != nil {
		return result, err
	} else if ok {
		change := PercentChange(prior, grade)
		switch {
		case change >= dayCriticalPct:
			result.Outliers = append(result.Outliers, Outlier{
				Type: "day_over_day", Field: "grade", Value: grade,
				Statistic: change, Threshold: dayCriticalPct, Severity: SeverityCritical,
			})
		case change >= dayWarningPct:
			result.Outliers = append(result.Outliers, Outlier{
				Type: "day_over_day", Field: "grade", Value: grade,
				Statistic: change, Threshold: dayWarningPct, Severity: SeverityWarning,
			})
		}
	}

	for _, o := range result.Outliers {
		if severityRank(o.Severity) > severityRank(result.Severity) {
			result.Severity = o.Severity
		}
	}
	return result, nil
}

// priorGrade finds the grade this source reported before its current
// one. The ledger's latest transform entry for the field carries it as
// the previous value; no prior entry means nothing to compare.
// Conflict-resolution entries are skipped: their PreviousValue is the
// losing source's value, not an earlier grade from this source.
func (v *Validator) priorGrade(ctx context.Context, id domain.ProspectID, source domain.Source) (float64, bool, error) {
	entries, err := v.history.History(ctx, lineage.EntityTypeProspect, id.String(), "grade")
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "read grade history")
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Source != source || entries[i].Conflict {
			continue
		}
		if prior, ok := entries[i].PreviousValue.AsFloat(); ok {
			return prior, true, nil
		}
		return 0, false, nil
	}
	return 0, false, nil
}

// Completeness severity for one prospect: no grade from anywhere is
// critical, a grade but none from the primary source is a warning.
func (v *Validator) Completeness(ctx context.Context, id domain.ProspectID) (OutlierSeverity, error) {
	sources, err := v.values.SourcesWithField(ctx, id, "grade")
	if err != nil {
		return SeverityNormal, dErrors.Wrap(err, dErrors.CodeInternal, "list grade sources")
	}
	if len(sources) == 0 {
		return SeverityCritical, nil
	}
	for _, s := range sources {
		if s == PrimarySource {
			return SeverityNormal, nil
		}
	}
	return SeverityWarning, nil
}

// BuildReport runs everything and assembles the verdict for one
// extraction.
func (v *Validator) BuildReport(ctx context.Context, extractionID domain.ExtractionID) (*Report, error) {
	report := &Report{
		ExtractionID: extractionID,
		GeneratedAt:  requestcontext.Now(ctx),
	}

	checks, err := v.RunTableChecks(ctx)
	if err != nil {
		return nil, err
	}
	report.Checks = checks

	prospects, err := v.prospects.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list prospects")
	}

	var missingAny, missingPrimary int
	for _, p := range prospects {
		completeness, err := v.Completeness(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		switch completeness {
		case SeverityCritical:
			missingAny++
		case SeverityWarning:
			missingPrimary++
		}

		sources, err := v.values.SourcesWithField(ctx, p.ID, "grade")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list grade sources")
		}
		for _, source := range sources {
			result, err := v.ValidateGrade(ctx, p, source)
			if err != nil {
				return nil, err
			}
			report.Records = append(report.Records, result)
		}
	}

	report.Checks = append(report.Checks,
		CheckResult{
			Name:     "completeness_any_source",
			Passed:   missingAny == 0,
			Errors:   missingAny,
			Message:  fmt.Sprintf("%d prospects have no grade from any source", missingAny),
			Critical: true,
		},
		CheckResult{
			Name:     "completeness_primary_source",
			Passed:   missingPrimary == 0,
			Errors:   missingPrimary,
			Message:  fmt.Sprintf("%d prospects are missing a %s grade", missingPrimary, PrimarySource),
			Critical: false,
		},
	)

	report.Status = deriveStatus(report.Checks, report.Records)
	return report, nil
}

// Score folds a prospect's validation outcome into a 0-100 quality
// score for the canonical record.
func Score(results []GradeValidationResult, completeness OutlierSeverity) float64 {
	score := 100.0
	for _, r := range results {
		score -= 25 * float64(len(r.Violations))
		for _, o := range r.Outliers {
			if o.Severity == SeverityCritical {
				score -= 20
			} else {
				score -= 10
			}
		}
	}
	switch completeness {
	case SeverityCritical:
		score -= 40
	case SeverityWarning:
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	return score
}

// excludeOne removes a single occurrence of value. Equal grades carry
// equal statistical weight, so which occurrence goes does not matter.
func excludeOne(cohort []float64, value float64) []float64 {
	out := make([]float64, 0, len(cohort))
	removed := false
	for _, v := range cohort {
		if !removed && v == value {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}

func severityRank(s OutlierSeverity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

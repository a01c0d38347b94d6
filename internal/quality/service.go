package quality

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"draftline/internal/canonical"
	"draftline/internal/quality/metrics"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/sentinel"
	"draftline/pkg/requestcontext"
)

// Service runs the validation suite for an extraction, persists the
// report, folds scores back onto canonical records, and records the
// daily trend metrics.
type Service struct {
	validator *Validator
	prospects canonical.Store
	values    canonical.SourceValueStore
	reports   ReportStore
	metricRow MetricStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(validator *Validator, prospects canonical.Store, values canonical.SourceValueStore, reports ReportStore, metricRow MetricStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		validator: validator,
		prospects: prospects,
		values:    values,
		reports:   reports,
		metricRow: metricRow,
		logger:    logger,
		metrics:   m,
	}
}

// Run validates the current dataset under the given extraction id and
// returns the persisted report.
func (s *Service) Run(ctx context.Context, extractionID domain.ExtractionID) (*Report, error) {
	if extractionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "extraction id is required")
	}

	report, err := s.validator.BuildReport(ctx, extractionID)
	if err != nil {
		return nil, err
	}
	if err := s.reports.Save(ctx, report); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save quality report")
	}

	if err := s.scoreProspects(ctx, report); err != nil {
		return nil, err
	}
	if err := s.recordTrendMetrics(ctx); err != nil {
		// Trend rows are advisory. A failed insert should not undo a
		// report that already passed validation.
		s.logger.Warn("recording quality trend metrics failed", "error", err)
	}

	s.observe(report)
	s.logger.Info("quality report generated",
		"extraction_id", extractionID,
		"status", report.Status,
		"checks", len(report.Checks),
		"records", len(report.Records),
	)
	return report, nil
}

// Report returns the stored report for an extraction.
func (s *Service) Report(ctx context.Context, extractionID domain.ExtractionID) (*Report, error) {
	if extractionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "extraction id is required")
	}
	report, err := s.reports.FindByExtraction(ctx, extractionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no quality report for extraction")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load quality report")
	}
	return report, nil
}

// scoreProspects writes each prospect's quality score from its share of
// the report's record results.
func (s *Service) scoreProspects(ctx context.Context, report *Report) error {
	byProspect := make(map[domain.ProspectID][]GradeValidationResult)
	for _, r := range report.Records {
		byProspect[r.ProspectID] = append(byProspect[r.ProspectID], r)
	}

	prospects, err := s.prospects.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list prospects")
	}
	for _, p := range prospects {
		completeness, err := s.validator.Completeness(ctx, p.ID)
		if err != nil {
			return err
		}
		p.QualityScore = Score(byProspect[p.ID], completeness)
		p.UpdatedAt = requestcontext.Now(ctx)
		if err := s.prospects.Update(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update quality score")
		}
	}
	return nil
}

// recordTrendMetrics writes the day's mean grade per (position, source)
// cohort so swings are visible across extractions.
func (s *Service) recordTrendMetrics(ctx context.Context) error {
	day := requestcontext.Now(ctx).UTC().Truncate(24 * time.Hour)

	prospects, err := s.prospects.List(ctx)
	if err != nil {
		return err
	}
	positions := make(map[domain.Position]bool)
	for _, p := range prospects {
		positions[p.Position] = true
	}

	for position := range positions {
		for _, source := range domain.KnownSources() {
			cohort, err := s.values.CohortValues(ctx, position, source, "grade")
			if err != nil {
				return err
			}
			if len(cohort) == 0 {
				continue
			}
			metric := Metric{
				Date:     day,
				Position: position,
				Source:   source,
				Name:     "mean_grade",
				Value:    Mean(cohort),
			}
			if err := s.metricRow.Record(ctx, metric); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) observe(report *Report) {
	s.metrics.IncrementReport(string(report.Status))
	for _, c := range report.Checks {
		if !c.Passed {
			s.metrics.IncrementCheckFailure(c.Name)
		}
	}
	for _, r := range report.Records {
		for _, o := range r.Outliers {
			s.metrics.IncrementOutlier(o.Type, string(o.Severity))
		}
	}
}

package quality

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"draftline/internal/canonical"
	"draftline/internal/lineage"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	prospects *canonical.InMemoryStore
	values    *canonical.InMemorySourceValueStore
	reports   *InMemoryReportStore
	metrics   *InMemoryMetricStore
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.prospects = canonical.NewInMemoryStore()
	s.values = canonical.NewInMemorySourceValueStore(s.prospects)
	s.reports = NewInMemoryReportStore()
	s.metrics = NewInMemoryMetricStore()

	ledger := lineage.NewInMemoryStore()
	validator := NewValidator(s.prospects, s.values, lineage.NewRecorder(ledger), discardLogger())
	s.service = NewService(validator, s.prospects, s.values, s.reports, s.metrics, discardLogger(), nil)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) addGraded(lastName string, position domain.Position, source domain.Source, grade float64) *canonical.Prospect {
	p, err := canonical.NewProspect(domain.ProspectID(uuid.New()), "Test", lastName, position, "State", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.prospects.Create(s.ctx, p))
	_, _, err = s.values.Upsert(s.ctx, p.ID, source, "grade", domain.DecimalValue(grade), time.Now())
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) TestRunPersistsReport() {
	s.addGraded("Clean", domain.PositionQB, domain.SourceNFL, 8.0)

	report, err := s.service.Run(s.ctx, domain.ExtractionID("extract-2026-04-01"))
	s.Require().NoError(err)
	s.Equal(StatusPass, report.Status)

	stored, err := s.service.Report(s.ctx, domain.ExtractionID("extract-2026-04-01"))
	s.Require().NoError(err)
	s.Equal(report.Status, stored.Status)
	s.Len(stored.Records, len(report.Records))
}

func (s *ServiceSuite) TestRunFailsOnOutOfRangeGrade() {
	s.addGraded("Broken", domain.PositionQB, domain.SourceNFL, 14.0)

	report, err := s.service.Run(s.ctx, domain.ExtractionID("extract-bad"))
	s.Require().NoError(err)
	s.Equal(StatusFail, report.Status)
}

func (s *ServiceSuite) TestRunWarnsOnMissingPrimarySource() {
	s.addGraded("EspnOnly", domain.PositionWR, domain.SourceESPN, 7.0)

	report, err := s.service.Run(s.ctx, domain.ExtractionID("extract-warn"))
	s.Require().NoError(err)
	s.Equal(StatusPassWarnings, report.Status)
}

func (s *ServiceSuite) TestRunScoresProspects() {
	clean := s.addGraded("Clean", domain.PositionQB, domain.SourceNFL, 8.0)
	partial := s.addGraded("Partial", domain.PositionWR, domain.SourceESPN, 7.0)

	_, err := s.service.Run(s.ctx, domain.ExtractionID("extract-score"))
	s.Require().NoError(err)

	got, err := s.prospects.FindByID(s.ctx, clean.ID)
	s.Require().NoError(err)
	s.InDelta(100.0, got.QualityScore, 0.001)

	got, err = s.prospects.FindByID(s.ctx, partial.ID)
	s.Require().NoError(err)
	s.Less(got.QualityScore, 100.0)
}

func (s *ServiceSuite) TestRunRecordsTrendMetrics() {
	s.addGraded("TrendA", domain.PositionQB, domain.SourceNFL, 8.0)
	s.addGraded("TrendB", domain.PositionQB, domain.SourceNFL, 9.0)

	_, err := s.service.Run(s.ctx, domain.ExtractionID("extract-trend"))
	s.Require().NoError(err)

	series, err := s.metrics.Series(s.ctx, "mean_grade", domain.PositionQB, domain.SourceNFL,
		time.Now().Add(-48*time.Hour), time.Now().Add(48*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(series, 1)
	s.InDelta(8.5, series[0].Value, 0.001)
}

func (s *ServiceSuite) TestReportNotFound() {
	_, err := s.service.Report(s.ctx, domain.ExtractionID("missing"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRunRejectsEmptyExtractionID() {
	_, err := s.service.Run(s.ctx, domain.ExtractionID(""))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

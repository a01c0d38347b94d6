package transform

//go:generate mockgen -source=processor.go -destination=mocks/mocks.go -package=mocks Resolver,LineageRecorder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"draftline/internal/canonical"
	"draftline/internal/identity"
	"draftline/internal/lineage"
	"draftline/internal/platform/config"
	"draftline/internal/staging"
	"draftline/internal/transform/mocks"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

type ProcessorSuite struct {
	suite.Suite
	ctx       context.Context
	prospects *canonical.InMemoryStore
	values    *canonical.InMemorySourceValueStore
	ledger    *lineage.InMemoryStore
	recorder  *lineage.Recorder
	matcher   *identity.Matcher
	processor *Processor
}

func (s *ProcessorSuite) SetupTest() {
	s.ctx = context.Background()
	s.prospects = canonical.NewInMemoryStore()
	s.values = canonical.NewInMemorySourceValueStore(s.prospects)
	s.ledger = lineage.NewInMemoryStore()
	s.recorder = lineage.NewRecorder(s.ledger)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.matcher = identity.NewMatcher(s.prospects, nil, config.Matcher{
		HighThreshold:   95,
		MediumThreshold: 85,
		LowThreshold:    75,
		CollegeBonus:    5,
	}, logger)

	registry := NewRegistry(NewNFLTransformer(), NewESPNTransformer(), NewCBSTransformer())
	s.processor = NewProcessor(registry, s.matcher, s.values, s.recorder, nil, logger, 2)
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func nflRow(nativeID, first, last, position string, grade float64) staging.StagedRecord {
	return staging.StagedRecord{
		ExtractionID: domain.ExtractionID("ext-2026-04-20"),
		Source:       domain.SourceNFL,
		NativeID:     nativeID,
		Fields: map[string]domain.FieldValue{
			"first_name": domain.StringValue(first),
			"last_name":  domain.StringValue(last),
			"position":   domain.StringValue(position),
			"college":    domain.StringValue("Alabama"),
			"grade":      domain.DecimalValue(grade),
		},
		RawScale:  "5.0-10.0",
		ScrapedAt: time.Now(),
	}
}

// TestBatchContinuesPastInvalidRow verifies one invalid row fails in
// VALIDATE while the rest of the batch lands.
func (s *ProcessorSuite) TestBatchContinuesPastInvalidRow() {
	bad := nflRow("p2", "Marcus", "Webb", "QB", 8.0)
	delete(bad.Fields, "grade")

	report := s.processor.ProcessBatch(s.ctx, []staging.StagedRecord{
		nflRow("p1", "Jalen", "Carter", "QB", 8.5),
		bad,
		nflRow("p3", "DeShawn", "Riley", "WR", 7.2),
	})

	s.Equal(3, report.Processed)
	s.Equal(2, report.Validated)
	s.Equal(1, report.Invalid)
	s.Equal(2, report.Created)
	s.Require().Len(report.Failures, 1)
	s.Equal(PhaseValidate, report.Failures[0].Phase)
	s.Contains(report.Failures[0].RowRef, "p2")
	s.Contains(report.Failures[0].Reason, "grade")
}

// TestIdentityStability verifies the same player from two sources lands
// on one canonical prospect.
func (s *ProcessorSuite) TestIdentityStability() {
	espnRow := staging.StagedRecord{
		ExtractionID: domain.ExtractionID("ext-2026-04-20"),
		Source:       domain.SourceESPN,
		NativeID:     "e77",
		Fields: map[string]domain.FieldValue{
			"first_name": domain.StringValue("Jalen"),
			"last_name":  domain.StringValue("Carter Jr."),
			"position":   domain.StringValue("QB"),
			"college":    domain.StringValue("Alabama"),
			"grade":      domain.DecimalValue(70),
		},
		RawScale: "0-100",
	}

	report := s.processor.ProcessBatch(s.ctx, []staging.StagedRecord{
		nflRow("p1", "Jalen", "Carter", "QB", 8.5),
		espnRow,
	})

	s.Empty(report.Failures)
	s.Equal(1, report.Created)
	s.Equal(1, report.Matched)

	all, err := s.prospects.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	views, err := s.values.ViewsByProspect(s.ctx, all[0].ID)
	s.Require().NoError(err)
	s.Contains(views, domain.SourceNFL)
	s.Contains(views, domain.SourceESPN)
}

// TestGradeNormalizationAcrossScales verifies the 0-100 source lands on
// the canonical scale.
func (s *ProcessorSuite) TestGradeNormalizationAcrossScales() {
	espnRow := staging.StagedRecord{
		ExtractionID: domain.ExtractionID("ext-1"),
		Source:       domain.SourceESPN,
		NativeID:     "e1",
		Fields: map[string]domain.FieldValue{
			"first_name": domain.StringValue("Trey"),
			"last_name":  domain.StringValue("Holden"),
			"position":   domain.StringValue("RB"),
			"grade":      domain.DecimalValue(50),
		},
	}
	report := s.processor.ProcessBatch(s.ctx, []staging.StagedRecord{espnRow})
	s.Require().Empty(report.Failures)

	all, err := s.prospects.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	grade, err := s.values.Get(s.ctx, all[0].ID, domain.SourceESPN, "grade")
	s.Require().NoError(err)
	got, ok := grade.AsFloat()
	s.Require().True(ok)
	s.Equal(7.5, got)
}

// TestReprocessingIsIdempotent verifies replaying the same extraction
// writes no new values and no new ledger entries.
func (s *ProcessorSuite) TestReprocessingIsIdempotent() {
	batch := []staging.StagedRecord{nflRow("p1", "Jalen", "Carter", "QB", 8.5)}

	first := s.processor.ProcessBatch(s.ctx, batch)
	s.Require().Empty(first.Failures)
	s.Positive(first.Changes)

	all, err := s.prospects.List(s.ctx)
	s.Require().NoError(err)
	before, err := s.ledger.History(s.ctx, lineage.EntityTypeProspect, all[0].ID.String(), "")
	s.Require().NoError(err)

	second := s.processor.ProcessBatch(s.ctx, batch)
	s.Require().Empty(second.Failures)
	s.Zero(second.Changes)
	s.Equal(1, second.Matched)

	after, err := s.ledger.History(s.ctx, lineage.EntityTypeProspect, all[0].ID.String(), "")
	s.Require().NoError(err)
	s.Len(after, len(before))
}

// TestLineageWriteFailureFailsRow verifies a ledger write failure fails
// the row and the value is not written.
func (s *ProcessorSuite) TestLineageWriteFailureFailsRow() {
	ctrl := gomock.NewController(s.T())
	failing := mocks.NewMockLineageRecorder(ctrl)
	failing.EXPECT().Record(gomock.Any(), gomock.Any()).
		Return(domain.LineageID{}, dErrors.New(dErrors.CodeInternal, "ledger unavailable")).
		AnyTimes()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(NewNFLTransformer(), NewESPNTransformer(), NewCBSTransformer())
	processor := NewProcessor(registry, s.matcher, s.values, failing, nil, logger, 1)

	report := processor.ProcessBatch(s.ctx, []staging.StagedRecord{
		nflRow("p1", "Jalen", "Carter", "QB", 8.5),
	})

	s.Require().Len(report.Failures, 1)
	s.Equal(PhaseNormalize, report.Failures[0].Phase)
	s.Contains(report.Failures[0].Reason, "lineage write")

	all, err := s.prospects.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1) // prospect created before the normalize phase
	views, err := s.values.ViewsByProspect(s.ctx, all[0].ID)
	s.Require().NoError(err)
	s.Empty(views)
}

// TestPanicInNormalizeIsRecovered verifies a panicking transformer
// fails its row with the right phase and the batch survives.
func (s *ProcessorSuite) TestPanicInNormalizeIsRecovered() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(panicTransformer{}, NewESPNTransformer(), NewCBSTransformer())
	processor := NewProcessor(registry, s.matcher, s.values, s.recorder, nil, logger, 1)

	report := processor.ProcessBatch(s.ctx, []staging.StagedRecord{
		nflRow("p1", "Jalen", "Carter", "QB", 8.5),
	})

	s.Require().Len(report.Failures, 1)
	s.Equal(PhaseNormalize, report.Failures[0].Phase)
	s.Contains(report.Failures[0].Reason, "panic")
}

// TestDeadlineStopsNewRows verifies an expired context fails queued
// rows instead of starting them.
func (s *ProcessorSuite) TestDeadlineStopsNewRows() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	report := s.processor.ProcessBatch(ctx, []staging.StagedRecord{
		nflRow("p1", "Jalen", "Carter", "QB", 8.5),
		nflRow("p2", "Marcus", "Webb", "WR", 7.0),
	})

	s.Equal(2, report.Processed)
	s.Len(report.Failures, 2)
	for _, f := range report.Failures {
		s.Contains(f.Reason, "deadline")
	}
}

// panicTransformer stands in for the nfl transformer and panics during
// normalization.
type panicTransformer struct{}

func (panicTransformer) Source() domain.Source { return domain.SourceNFL }

func (panicTransformer) Validate(rec *staging.StagedRecord) error {
	return NewNFLTransformer().Validate(rec)
}

func (panicTransformer) ExtractIdentity(rec *staging.StagedRecord) (identity.Identity, error) {
	return NewNFLTransformer().ExtractIdentity(rec)
}

func (panicTransformer) Normalize(*staging.StagedRecord, domain.ProspectID) ([]FieldChange, error) {
	panic("normalize exploded")
}

package reconcile

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
	"draftline/internal/platform/config"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/requestcontext"
)

type EngineSuite struct {
	suite.Suite
	ctx       context.Context
	prospects *canonical.InMemoryStore
	values    *canonical.InMemorySourceValueStore
	resolved  *canonical.InMemoryResolvedValueStore
	conflicts *InMemoryStore
	ledger    *lineage.InMemoryStore
	engine    *Engine
	prospect  domain.ProspectID
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.prospects = canonical.NewInMemoryStore()
	s.values = canonical.NewInMemorySourceValueStore(s.prospects)
	s.resolved = canonical.NewInMemoryResolvedValueStore()
	s.conflicts = NewInMemoryStore()
	s.ledger = lineage.NewInMemoryStore()
	s.prospect = domain.ProspectID(uuid.New())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.engine = NewEngine(s.values, s.resolved, s.conflicts, lineage.NewRecorder(s.ledger),
		config.Tolerances{HeightInches: 0.5, WeightPounds: 10, TimedSeconds: 0.1}, nil, logger)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) put(source domain.Source, field string, v domain.FieldValue) {
	_, _, err := s.values.Upsert(s.ctx, s.prospect, source, field, v, time.Now())
	s.Require().NoError(err)
}

// TestToleranceSuppressesSmallDifferences verifies values inside the
// tolerance never conflict, including across height units.
func (s *EngineSuite) TestToleranceSuppressesSmallDifferences() {
	s.Run("weight within 10lb", func() {
		s.SetupTest()
		s.put(domain.SourceNFL, "weight", domain.DecimalValue(220))
		s.put(domain.SourceESPN, "weight", domain.DecimalValue(228))

		result, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Empty(result.Conflicts)
		s.Equal(RecommendationConsistent, result.Recommendation)
	})

	s.Run("height in feet vs inches inside half an inch", func() {
		s.SetupTest()
		s.put(domain.SourceNFL, "height", domain.DecimalValue(74))      // inches
		s.put(domain.SourceCBS, "height", domain.DecimalValue(6.17))    // feet, 74.04 in
		result, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Empty(result.Conflicts)
	})

	s.Run("forty time over 0.1s conflicts", func() {
		s.SetupTest()
		s.put(domain.SourceNFL, "forty_time", domain.DecimalValue(4.4))
		s.put(domain.SourceESPN, "forty_time", domain.DecimalValue(4.6))
		result, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Len(result.Conflicts, 1)
	})
}

// TestConflictSymmetry verifies detection is order-independent: the
// same pair of values yields the same severity whichever source holds
// which.
func (s *EngineSuite) TestConflictSymmetry() {
	s.put(domain.SourceNFL, "weight", domain.DecimalValue(220))
	s.put(domain.SourceESPN, "weight", domain.DecimalValue(301))
	first, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	s.Require().Len(first.Conflicts, 1)

	s.SetupTest()
	s.put(domain.SourceNFL, "weight", domain.DecimalValue(301))
	s.put(domain.SourceESPN, "weight", domain.DecimalValue(220))
	second, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	s.Require().Len(second.Conflicts, 1)

	s.Equal(first.Conflicts[0].Severity, second.Conflicts[0].Severity)
	s.InDelta(first.Conflicts[0].PercentDiff, second.Conflicts[0].PercentDiff, 1e-9)
}

// TestAuthorityResolution verifies the authority's value wins and the
// resolution is recorded in the ledger.
func (s *EngineSuite) TestAuthorityResolution() {
	s.put(domain.SourceNFL, "grade", domain.DecimalValue(8.5))
	s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))

	result, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	s.Require().Len(result.Conflicts, 1)

	record := result.Conflicts[0]
	s.Equal(StatusResolvedAutomatic, record.Status)
	s.Equal(domain.SourceNFL, record.ResolvedSource)
	got, ok := record.ResolvedValue.AsFloat()
	s.Require().True(ok)
	s.Equal(8.5, got)

	resolved, err := s.resolved.ByProspect(s.ctx, s.prospect)
	s.Require().NoError(err)
	grade, ok := resolved["grade"].AsFloat()
	s.Require().True(ok)
	s.Equal(8.5, grade)

	entries, err := s.ledger.ConflictsForField(s.ctx, lineage.EntityTypeProspect, "grade")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].Conflict)
	s.Contains(entries[0].ConflictWith, domain.SourceESPN)
}

// TestEscalationSafety verifies a conflict whose authority is absent is
// escalated, never silently resolved.
func (s *EngineSuite) TestEscalationSafety() {
	// grade authority is nfl; only espn and cbs disagree
	s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))
	s.put(domain.SourceCBS, "grade", domain.DecimalValue(9.0))

	result, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	s.Require().Len(result.Conflicts, 1)

	record := result.Conflicts[0]
	s.Equal(StatusEscalated, record.Status)
	s.NotEmpty(record.Notes)
	s.NotContains(result.Resolved, "grade")
	s.Equal(RecommendationReview, result.Recommendation)

	resolved, err := s.resolved.ByProspect(s.ctx, s.prospect)
	s.Require().NoError(err)
	s.NotContains(resolved, "grade")
}

// TestStructuralChecks verifies the single-source sanity checks.
func (s *EngineSuite) TestStructuralChecks() {
	s.Run("implausible touchdown ratio", func() {
		s.SetupTest()
		s.put(domain.SourceESPN, "touchdowns", domain.IntValue(30))
		s.put(domain.SourceESPN, "yards", domain.IntValue(120))

		result, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(result.Conflicts, 1)
		s.Equal(SeverityCritical, result.Conflicts[0].Severity)
		s.Equal(StatusEscalated, result.Conflicts[0].Status)
		s.Equal(RecommendationHumanReview, result.Recommendation)
	})

	s.Run("out status with past return date", func() {
		s.SetupTest()
		now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		s.put(domain.SourceNFL, "status", domain.StringValue("out"))
		s.put(domain.SourceNFL, "return_date", domain.DateValue(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

		result, err := s.engine.Reconcile(ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(result.Conflicts, 1)
		s.Equal("status", result.Conflicts[0].Field)
		s.Equal(SeverityCritical, result.Conflicts[0].Severity)
	})

	s.Run("future return date is fine", func() {
		s.SetupTest()
		now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		s.put(domain.SourceNFL, "status", domain.StringValue("out"))
		s.put(domain.SourceNFL, "return_date", domain.DateValue(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))

		result, err := s.engine.Reconcile(ctx, s.prospect)
		s.Require().NoError(err)
		s.Empty(result.Conflicts)
	})
}

// TestRerunReusesUnchangedConflicts verifies re-running over unchanged
// data reuses the stored record instead of inserting a duplicate.
func (s *EngineSuite) TestRerunReusesUnchangedConflicts() {
	s.Run("escalated pair keeps one record", func() {
		s.SetupTest()
		s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))
		s.put(domain.SourceCBS, "grade", domain.DecimalValue(9.0))

		first, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(first.Conflicts, 1)

		rerun, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(rerun.Conflicts, 1)
		s.Equal(first.Conflicts[0].ID, rerun.Conflicts[0].ID)

		all, err := s.conflicts.ListByProspect(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("auto-resolved pair keeps its record and value", func() {
		s.SetupTest()
		s.put(domain.SourceNFL, "grade", domain.DecimalValue(8.5))
		s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))

		first, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(first.Conflicts, 1)

		rerun, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(rerun.Conflicts, 1)
		s.Equal(first.Conflicts[0].ID, rerun.Conflicts[0].ID)
		grade, ok := rerun.Resolved["grade"].AsFloat()
		s.Require().True(ok)
		s.Equal(8.5, grade)

		all, err := s.conflicts.ListByProspect(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("changed value opens a new conflict", func() {
		s.SetupTest()
		s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))
		s.put(domain.SourceCBS, "grade", domain.DecimalValue(9.0))

		first, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(first.Conflicts, 1)

		s.put(domain.SourceCBS, "grade", domain.DecimalValue(9.5))
		rerun, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Require().Len(rerun.Conflicts, 1)
		s.NotEqual(first.Conflicts[0].ID, rerun.Conflicts[0].ID)

		all, err := s.conflicts.ListByProspect(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Len(all, 2)
	})

	s.Run("structural conflict is not duplicated", func() {
		s.SetupTest()
		s.put(domain.SourceESPN, "touchdowns", domain.IntValue(30))
		s.put(domain.SourceESPN, "yards", domain.IntValue(120))

		_, err := s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)
		_, err = s.engine.Reconcile(s.ctx, s.prospect)
		s.Require().NoError(err)

		all, err := s.conflicts.ListByProspect(s.ctx, s.prospect)
		s.Require().NoError(err)
		s.Len(all, 1)
	})
}

// TestOverride verifies manual resolution and that re-runs do not
// revert it.
func (s *EngineSuite) TestOverride() {
	s.put(domain.SourceNFL, "grade", domain.DecimalValue(8.5))
	s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))

	result, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	auto := result.Conflicts[0]
	s.Equal(StatusResolvedAutomatic, auto.Status)

	ctx := requestcontext.WithOperatorID(s.ctx, "scout-47")
	record, err := s.engine.Override(ctx, auto.ID, domain.SourceESPN, "combine numbers were stale")
	s.Require().NoError(err)
	s.Equal(StatusResolvedManual, record.Status)
	s.Equal("scout-47", record.ResolvedBy)
	got, ok := record.ResolvedValue.AsFloat()
	s.Require().True(ok)
	s.Equal(6.0, got)

	// Re-running must keep the operator's choice.
	rerun, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)
	grade, ok := rerun.Resolved["grade"].AsFloat()
	s.Require().True(ok)
	s.Equal(6.0, grade)

	stored, err := s.conflicts.FindByID(s.ctx, auto.ID)
	s.Require().NoError(err)
	s.Equal(StatusResolvedManual, stored.Status)
}

// TestOverrideRejectsForeignSource verifies the chosen source must be
// part of the conflict.
func (s *EngineSuite) TestOverrideRejectsForeignSource() {
	s.put(domain.SourceNFL, "grade", domain.DecimalValue(8.5))
	s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))

	result, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)

	_, err = s.engine.Override(s.ctx, result.Conflicts[0].ID, domain.SourceCBS, "nope")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestSuppress verifies suppression is terminal.
func (s *EngineSuite) TestSuppress() {
	s.put(domain.SourceESPN, "grade", domain.DecimalValue(6.0))
	s.put(domain.SourceCBS, "grade", domain.DecimalValue(9.0))

	result, err := s.engine.Reconcile(s.ctx, s.prospect)
	s.Require().NoError(err)

	record, err := s.engine.Suppress(s.ctx, result.Conflicts[0].ID, "known site bug, tracked upstream")
	s.Require().NoError(err)
	s.Equal(StatusSuppressed, record.Status)

	_, err = s.engine.Override(s.ctx, record.ID, domain.SourceESPN, "too late")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestStateMachine(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDetected, StatusResolvedAutomatic, true},
		{StatusDetected, StatusEscalated, true},
		{StatusResolvedAutomatic, StatusResolvedManual, true},
		{StatusEscalated, StatusResolvedManual, true},
		{StatusResolvedManual, StatusDetected, false},
		{StatusResolvedManual, StatusResolvedAutomatic, false},
		{StatusSuppressed, StatusResolvedManual, false},
		{StatusResolvedAutomatic, StatusDetected, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPercentDiff(t *testing.T) {
	if got := PercentDiff(220, 301); got < 31 || got > 32 {
		t.Errorf("PercentDiff(220, 301) = %v, want ~31.1", got)
	}
	if got := PercentDiff(100, 100); got != 0 {
		t.Errorf("PercentDiff(100, 100) = %v, want 0", got)
	}
	if PercentDiff(220, 301) != PercentDiff(301, 220) {
		t.Error("PercentDiff is not symmetric")
	}
}

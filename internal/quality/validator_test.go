package quality

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"draftline/internal/canonical"
	"draftline/internal/lineage"
	"draftline/pkg/domain"
)

type ValidatorSuite struct {
	suite.Suite
	ctx       context.Context
	prospects *canonical.InMemoryStore
	values    *canonical.InMemorySourceValueStore
	ledger    *lineage.InMemoryStore
	recorder  *lineage.Recorder
	validator *Validator
}

func (s *ValidatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.prospects = canonical.NewInMemoryStore()
	s.values = canonical.NewInMemorySourceValueStore(s.prospects)
	s.ledger = lineage.NewInMemoryStore()
	s.recorder = lineage.NewRecorder(s.ledger)
	s.validator = NewValidator(s.prospects, s.values, s.recorder, discardLogger())
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) addProspect(lastName string, position domain.Position) *canonical.Prospect {
	p, err := canonical.NewProspect(domain.ProspectID(uuid.New()), "Test", lastName, position, "State", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.prospects.Create(s.ctx, p))
	return p
}

func (s *ValidatorSuite) setGrade(id domain.ProspectID, source domain.Source, grade float64) {
	_, _, err := s.values.Upsert(s.ctx, id, source, "grade", domain.DecimalValue(grade), time.Now())
	s.Require().NoError(err)
}

// addCohort seeds nine WR peers graded by ESPN. Peer mean 9.3, sample
// stdev about 0.189.
func (s *ValidatorSuite) addCohort() {
	for i, grade := range []float64{9.0, 9.1, 9.2, 9.3, 9.4, 9.5, 9.6, 9.25, 9.35} {
		p := s.addProspect(fmt.Sprintf("Peer%d", i), domain.PositionWR)
		s.setGrade(p.ID, domain.SourceESPN, grade)
	}
}

func (s *ValidatorSuite) TestCohortOutlierDetection() {
	s.Run("grade near the mean is not flagged", func() {
		s.SetupTest()
		s.addCohort()
		p := s.addProspect("Candidate", domain.PositionWR)
		s.setGrade(p.ID, domain.SourceESPN, 9.25)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceESPN)
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Empty(result.Outliers)
		s.Equal(SeverityNormal, result.Severity)
	})

	s.Run("grade far below the cohort is critical", func() {
		s.SetupTest()
		s.addCohort()
		p := s.addProspect("Candidate", domain.PositionWR)
		s.setGrade(p.ID, domain.SourceESPN, 8.0)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceESPN)
		s.Require().NoError(err)
		s.Require().Len(result.Outliers, 1)
		s.Equal("zscore", result.Outliers[0].Type)
		s.Equal(SeverityCritical, result.Outliers[0].Severity)
		s.Equal(SeverityCritical, result.Severity)
	})

	s.Run("moderately low grade is a warning", func() {
		s.SetupTest()
		s.addCohort()
		p := s.addProspect("Candidate", domain.PositionWR)
		s.setGrade(p.ID, domain.SourceESPN, 8.83)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceESPN)
		s.Require().NoError(err)
		s.Require().Len(result.Outliers, 1)
		s.Equal(SeverityWarning, result.Outliers[0].Severity)
	})
}

func (s *ValidatorSuite) TestZeroVarianceCohortFlagsNothing() {
	for i := 0; i < 4; i++ {
		p := s.addProspect(fmt.Sprintf("Same%d", i), domain.PositionQB)
		s.setGrade(p.ID, domain.SourceNFL, 8.0)
	}
	p := s.addProspect("Candidate", domain.PositionQB)
	s.setGrade(p.ID, domain.SourceNFL, 8.0)

	result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceNFL)
	s.Require().NoError(err)
	s.Empty(result.Outliers)
}

func (s *ValidatorSuite) TestSmallCohortIsSkipped() {
	a := s.addProspect("One", domain.PositionK)
	b := s.addProspect("Two", domain.PositionK)
	s.setGrade(a.ID, domain.SourceNFL, 9.5)
	s.setGrade(b.ID, domain.SourceNFL, 5.5)

	result, err := s.validator.ValidateGrade(s.ctx, b, domain.SourceNFL)
	s.Require().NoError(err)
	s.Empty(result.Outliers)
}

func (s *ValidatorSuite) TestGradeRangeFailsClosed() {
	p := s.addProspect("Range", domain.PositionRB)
	s.setGrade(p.ID, domain.SourceNFL, 11.2)

	result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceNFL)
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Require().Len(result.Violations, 1)
	s.Equal(SeverityCritical, result.Severity)
}

func (s *ValidatorSuite) recordGradeChange(id domain.ProspectID, source domain.Source, prior, current float64) {
	_, err := s.recorder.Record(s.ctx, lineage.Entry{
		EntityType:    lineage.EntityTypeProspect,
		EntityID:      id.String(),
		Field:         "grade",
		Value:         domain.DecimalValue(current),
		PreviousValue: domain.DecimalValue(prior),
		Source:        source,
		RuleID:        "passthrough_v1",
	})
	s.Require().NoError(err)
}

func (s *ValidatorSuite) TestDayOverDaySwing() {
	s.Run("halving a grade overnight is critical", func() {
		s.SetupTest()
		p := s.addProspect("Swing", domain.PositionTE)
		s.setGrade(p.ID, domain.SourceCBS, 5.0)
		s.recordGradeChange(p.ID, domain.SourceCBS, 10.0, 5.0)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceCBS)
		s.Require().NoError(err)
		s.Require().Len(result.Outliers, 1)
		s.Equal("day_over_day", result.Outliers[0].Type)
		s.Equal(SeverityCritical, result.Outliers[0].Severity)
	})

	s.Run("quarter drop is a warning", func() {
		s.SetupTest()
		p := s.addProspect("Swing", domain.PositionTE)
		s.setGrade(p.ID, domain.SourceCBS, 7.5)
		s.recordGradeChange(p.ID, domain.SourceCBS, 10.0, 7.5)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceCBS)
		s.Require().NoError(err)
		s.Require().Len(result.Outliers, 1)
		s.Equal(SeverityWarning, result.Outliers[0].Severity)
	})

	s.Run("no prior grade means no comparison", func() {
		s.SetupTest()
		p := s.addProspect("Fresh", domain.PositionTE)
		s.setGrade(p.ID, domain.SourceCBS, 9.0)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceCBS)
		s.Require().NoError(err)
		s.Empty(result.Outliers)
	})

	s.Run("resolution entries are not prior grades", func() {
		s.SetupTest()
		p := s.addProspect("Settled", domain.PositionTE)
		s.setGrade(p.ID, domain.SourceNFL, 9.0)
		s.recordGradeChange(p.ID, domain.SourceNFL, 9.0, 9.0)

		// A conflict resolution also lands in the ledger under the
		// winning source, carrying the losing source's value as
		// PreviousValue. That value is no earlier grade of ours.
		_, err := s.recorder.Record(s.ctx, lineage.Entry{
			EntityType:     lineage.EntityTypeProspect,
			EntityID:       p.ID.String(),
			Field:          "grade",
			Value:          domain.DecimalValue(9.0),
			PreviousValue:  domain.DecimalValue(6.0),
			Source:         domain.SourceNFL,
			RuleID:         "authoritative_source:nfl",
			Conflict:       true,
			ConflictWith:   map[domain.Source]string{domain.SourceESPN: "6"},
			ResolutionRule: "authoritative_source:nfl",
		})
		s.Require().NoError(err)

		result, err := s.validator.ValidateGrade(s.ctx, p, domain.SourceNFL)
		s.Require().NoError(err)
		s.Empty(result.Outliers)
		s.Equal(SeverityNormal, result.Severity)
	})
}

func (s *ValidatorSuite) TestCompleteness() {
	s.Run("primary source grade present", func() {
		s.SetupTest()
		p := s.addProspect("Full", domain.PositionCB)
		s.setGrade(p.ID, domain.SourceNFL, 7.0)

		severity, err := s.validator.Completeness(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(SeverityNormal, severity)
	})

	s.Run("graded but not by the primary source", func() {
		s.SetupTest()
		p := s.addProspect("Partial", domain.PositionCB)
		s.setGrade(p.ID, domain.SourceESPN, 7.0)

		severity, err := s.validator.Completeness(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(SeverityWarning, severity)
	})

	s.Run("no grade from anywhere", func() {
		s.SetupTest()
		p := s.addProspect("Empty", domain.PositionCB)

		severity, err := s.validator.Completeness(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(SeverityCritical, severity)
	})
}

func (s *ValidatorSuite) TestTableChecks() {
	p := s.addProspect("Table", domain.PositionQB)
	s.setGrade(p.ID, domain.SourceNFL, 12.0)
	_, _, err := s.values.Upsert(s.ctx, p.ID, domain.SourceNFL, "weight", domain.DecimalValue(500), time.Now())
	s.Require().NoError(err)
	_, _, err = s.values.Upsert(s.ctx, p.ID, domain.SourceESPN, "touchdowns", domain.IntValue(80), time.Now())
	s.Require().NoError(err)

	checks, err := s.validator.RunTableChecks(s.ctx)
	s.Require().NoError(err)

	byName := make(map[string]CheckResult, len(checks))
	for _, c := range checks {
		byName[c.Name] = c
	}

	s.True(byName["duplicate_identity_clusters"].Passed)
	s.False(byName["grade_bounds"].Passed)
	s.Equal(1, byName["grade_bounds"].Errors)
	s.False(byName["physiological_bounds"].Passed)
	s.Equal(1, byName["physiological_bounds"].Errors)
	s.False(byName["position_stat_ranges"].Passed)
	s.Equal(1, byName["position_stat_ranges"].Errors)
}

func (s *ValidatorSuite) TestHeightBoundsAcceptBothUnits() {
	tall := s.addProspect("Feet", domain.PositionOT)
	_, _, err := s.values.Upsert(s.ctx, tall.ID, domain.SourceCBS, "height", domain.DecimalValue(6.5), time.Now())
	s.Require().NoError(err)
	inches := s.addProspect("Inches", domain.PositionOT)
	_, _, err = s.values.Upsert(s.ctx, inches.ID, domain.SourceNFL, "height", domain.DecimalValue(78), time.Now())
	s.Require().NoError(err)

	checks, err := s.validator.RunTableChecks(s.ctx)
	s.Require().NoError(err)
	for _, c := range checks {
		if c.Name == "physiological_bounds" {
			s.True(c.Passed)
		}
	}
}

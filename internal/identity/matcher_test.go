package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"draftline/internal/canonical"
	"draftline/internal/platform/config"
	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
)

func testTime() time.Time {
	return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
}

type MatcherSuite struct {
	suite.Suite
	ctx       context.Context
	prospects *canonical.InMemoryStore
	matcher   *Matcher
}

func TestMatcherSuite(t *testing.T) {
	suite.Run(t, new(MatcherSuite))
}

func (s *MatcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.prospects = canonical.NewInMemoryStore()
	s.matcher = NewMatcher(s.prospects, nil, config.Matcher{
		HighThreshold:   95,
		MediumThreshold: 85,
		LowThreshold:    75,
		CollegeBonus:    5,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *MatcherSuite) seed(first, last string, position domain.Position, college string) *canonical.Prospect {
	p, err := canonical.NewProspect(domain.ProspectID(uuid.New()), first, last, position, college, testTime())
	s.Require().NoError(err)
	s.Require().NoError(s.prospects.Create(s.ctx, p))
	return p
}

func (s *MatcherSuite) TestNativeIDMatchIsExact() {
	p := s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")
	s.Require().NoError(s.prospects.BindNativeID(s.ctx, p.ID, domain.SourceNFL, "nfl-88"))

	match, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Jalen", LastName: "Carter",
		Position: domain.PositionDT, College: "Georgia",
		Source: domain.SourceNFL, NativeID: "nfl-88",
	})
	s.Require().NoError(err)
	s.Equal(p.ID, match.ProspectID)
	s.Equal(ConfidenceExact, match.Confidence)
	s.Equal(100.0, match.Score)
}

func (s *MatcherSuite) TestNameMatchBindsNativeID() {
	p := s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")

	match, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Jalen", LastName: "Carter",
		Position: domain.PositionDT, College: "Georgia",
		Source: domain.SourceESPN, NativeID: "espn-41",
	})
	s.Require().NoError(err)
	s.Equal(p.ID, match.ProspectID)
	s.Equal(ConfidenceHigh, match.Confidence)

	// The next lookup for the same native id takes the exact path.
	bound, err := s.prospects.FindByNativeID(s.ctx, domain.SourceESPN, "espn-41")
	s.Require().NoError(err)
	s.Equal(p.ID, bound.ID)
}

func (s *MatcherSuite) TestTypoWithCollegeAgreementScoresHigh() {
	p := s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")

	match, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Jaylen", LastName: "Carter",
		Position: domain.PositionDT, College: "Georgia",
		Source: domain.SourceCBS,
	})
	s.Require().NoError(err)
	s.Equal(p.ID, match.ProspectID)
	s.Equal(ConfidenceHigh, match.Confidence)
}

func (s *MatcherSuite) TestTypoWithoutCollegeAgreementScoresMedium() {
	p := s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")

	match, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Jaylen", LastName: "Carter",
		Position: domain.PositionDT, College: "Auburn",
		Source: domain.SourceCBS,
	})
	s.Require().NoError(err)
	s.Equal(p.ID, match.ProspectID)
	s.Equal(ConfidenceMedium, match.Confidence)
}

func (s *MatcherSuite) TestUnrelatedNameDoesNotMatch() {
	s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")

	_, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Bo", LastName: "Nix",
		Position: domain.PositionDT, College: "Oregon",
		Source: domain.SourceCBS,
	})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MatcherSuite) TestPositionPartitionsCandidates() {
	s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")

	// Same name at a different position is a different player.
	_, err := s.matcher.Match(s.ctx, Identity{
		FirstName: "Jalen", LastName: "Carter",
		Position: domain.PositionCB, College: "Georgia",
		Source: domain.SourceNFL,
	})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MatcherSuite) TestResolveCreatesUnknownProspect() {
	match, err := s.matcher.Resolve(s.ctx, Identity{
		FirstName: "Marvin", LastName: "Harrison",
		Position: domain.PositionWR, College: "Ohio State",
		Source: domain.SourceNFL, NativeID: "nfl-18",
	})
	s.Require().NoError(err)
	s.True(match.Created)

	again, err := s.matcher.Resolve(s.ctx, Identity{
		FirstName: "Marvin", LastName: "Harrison",
		Position: domain.PositionWR, College: "Ohio State",
		Source: domain.SourceESPN, NativeID: "espn-3",
	})
	s.Require().NoError(err)
	s.False(again.Created)
	s.Equal(match.ProspectID, again.ProspectID)
}

func (s *MatcherSuite) TestResolveRejectsEmptyName() {
	_, err := s.matcher.Resolve(s.ctx, Identity{
		Position: domain.PositionWR, College: "Ohio State",
		Source: domain.SourceNFL,
	})
	s.Require().Error(err)
}

func (s *MatcherSuite) TestPotentialMatchesListsLowBand() {
	s.seed("Jalen", "Carter", domain.PositionDT, "Georgia")
	s.seed("Bo", "Nix", domain.PositionDT, "Oregon")

	candidates, err := s.matcher.PotentialMatches(s.ctx, Identity{
		FirstName: "Jaylen", LastName: "Carter",
		Position: domain.PositionDT, College: "Auburn",
	})
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal("Jalen Carter", candidates[0].Name)
}

func (s *MatcherSuite) TestMatchAcrossSources() {
	a := Identity{FirstName: "Jalen", LastName: "Carter", Position: domain.PositionDT, College: "Georgia"}
	b := Identity{FirstName: "Carter", LastName: "Jalen", Position: domain.PositionDT, College: "georgia"}
	s.InDelta(100.0, s.matcher.MatchAcrossSources(a, b), 0.001)

	c := Identity{FirstName: "Jalen", LastName: "Carter", Position: domain.PositionCB, College: "Auburn"}
	s.Less(s.matcher.MatchAcrossSources(a, c), 80.0)
}

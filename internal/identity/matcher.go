// Package identity resolves a source's view of a prospect to the
// canonical record, or decides a new one is warranted.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"draftline/internal/canonical"
	"draftline/internal/platform/config"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/sentinel"
	"draftline/pkg/requestcontext"
)

// Identity is the matching view derived from one staged row. It is
// never persisted; the canonical record is the durable form.
type Identity struct {
	FirstName string
	LastName  string
	Position  domain.Position
	College   string
	Source    domain.Source
	NativeID  string
}

// Confidence classifies how a match was made.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Match is a successful resolution.
type Match struct {
	ProspectID domain.ProspectID
	Confidence Confidence
	Score      float64
	Created    bool
}

// Candidate is an advisory near-miss, surfaced for operators but never
// auto-accepted.
type Candidate struct {
	ProspectID domain.ProspectID
	Name       string
	Score      float64
}

// Matcher implements the fuzzy entity-matching algorithm. Thresholds
// are configuration data so operators can tune them without a deploy.
type Matcher struct {
	prospects canonical.Store
	cache     NativeIDCache
	cfg       config.Matcher
	logger    *slog.Logger
	creates   singleflight.Group
}

func NewMatcher(prospects canonical.Store, cache NativeIDCache, cfg config.Matcher, logger *slog.Logger) *Matcher {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Matcher{prospects: prospects, cache: cache, cfg: cfg, logger: logger}
}

// Match finds the canonical prospect for an identity without creating
// one. Returns sentinel.ErrNotFound (wrapped) when nothing clears the
// medium threshold.
func (m *Matcher) Match(ctx context.Context, ident Identity) (*Match, error) {
	if ident.NativeID != "" {
		if id, ok := m.cache.Get(ctx, ident.Source, ident.NativeID); ok {
			return &Match{ProspectID: id, Confidence: ConfidenceExact, Score: 100}, nil
		}
		p, err := m.prospects.FindByNativeID(ctx, ident.Source, ident.NativeID)
		if err == nil {
			m.cache.Set(ctx, ident.Source, ident.NativeID, p.ID)
			return &Match{ProspectID: p.ID, Confidence: ConfidenceExact, Score: 100}, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("native id lookup: %w", err)
		}
	}

	best, score, err := m.bestNameMatch(ctx, ident)
	if err != nil {
		return nil, err
	}
	if best == nil || score < m.cfg.MediumThreshold {
		return nil, sentinel.ErrNotFound
	}

	// Bind the native id so the next run takes the O(1) path. A failed
	// bind only costs the shortcut, so it is logged and not returned.
	if ident.NativeID != "" {
		if err := m.prospects.BindNativeID(ctx, best.ID, ident.Source, ident.NativeID); err != nil {
			m.logger.WarnContext(ctx, "failed to bind native id after name match",
				"prospect_id", best.ID,
				"source", ident.Source,
				"error", err,
			)
		} else {
			m.cache.Set(ctx, ident.Source, ident.NativeID, best.ID)
		}
	}

	return &Match{ProspectID: best.ID, Confidence: m.classify(score), Score: score}, nil
}

// Resolve matches or creates. Creation is serialized per identity
// cluster key: two staged rows for the same unknown player resolve to
// one new prospect, whichever row arrives second turning into a match.
func (m *Matcher) Resolve(ctx context.Context, ident Identity) (*Match, error) {
	match, err := m.Match(ctx, ident)
	if err == nil {
		return match, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	key := canonical.IdentityKey(ident.FirstName, ident.LastName, ident.Position, ident.College)
	v, err, _ := m.creates.Do(key, func() (any, error) {
		return m.create(ctx, ident, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Match), nil
}

func (m *Matcher) create(ctx context.Context, ident Identity, key string) (*Match, error) {
	now := requestcontext.Now(ctx)
	p, err := canonical.NewProspect(domain.ProspectID(uuid.New()), ident.FirstName, ident.LastName, ident.Position, ident.College, now)
	if err != nil {
		return nil, err
	}
	if ident.NativeID != "" {
		p.NativeIDs[ident.Source] = ident.NativeID
	}

	err = m.prospects.Create(ctx, p)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost the race to another writer (or another process): the
		// cluster now exists, so converge on it as a match.
		existing, ferr := m.prospects.FindByIdentityKey(ctx, key)
		if ferr != nil {
			return nil, fmt.Errorf("identity cluster lookup after conflict: %w", ferr)
		}
		if ident.NativeID != "" {
			if berr := m.prospects.BindNativeID(ctx, existing.ID, ident.Source, ident.NativeID); berr != nil {
				m.logger.WarnContext(ctx, "failed to bind native id after create race",
					"prospect_id", existing.ID,
					"error", berr,
				)
			}
		}
		return &Match{ProspectID: existing.ID, Confidence: ConfidenceExact, Score: 100}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create prospect: %w", err)
	}

	if ident.NativeID != "" {
		m.cache.Set(ctx, ident.Source, ident.NativeID, p.ID)
	}
	m.logger.InfoContext(ctx, "created canonical prospect",
		"prospect_id", p.ID,
		"position", p.Position,
		"source", ident.Source,
	)
	return &Match{ProspectID: p.ID, Confidence: ConfidenceExact, Score: 100, Created: true}, nil
}

// PotentialMatches lists advisory candidates scoring in the low band.
// These are for operator review listings only.
func (m *Matcher) PotentialMatches(ctx context.Context, ident Identity) ([]Candidate, error) {
	pool, err := m.prospects.ListByPosition(ctx, ident.Position)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	name := canonical.NormalizeName(ident.FirstName + " " + ident.LastName)
	var out []Candidate
	for _, p := range pool {
		score := m.score(name, ident.College, p)
		if score >= m.cfg.LowThreshold {
			out = append(out, Candidate{
				ProspectID: p.ID,
				Name:       p.FirstName + " " + p.LastName,
				Score:      score,
			})
		}
	}
	return out, nil
}

// MatchAcrossSources scores two identities directly, weighting position
// and college agreement explicitly instead of folding them into the
// name score. Reconciliation uses this when pairing source views that
// arrived without native ids.
func (m *Matcher) MatchAcrossSources(a, b Identity) float64 {
	nameScore := tokenSetRatio(
		canonical.NormalizeName(a.FirstName+" "+a.LastName),
		canonical.NormalizeName(b.FirstName+" "+b.LastName),
	)
	score := nameScore * 0.7
	if a.Position == b.Position {
		score += 20
	}
	if collegeEqual(a.College, b.College) {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (m *Matcher) bestNameMatch(ctx context.Context, ident Identity) (*canonical.Prospect, float64, error) {
	if strings.TrimSpace(ident.FirstName+ident.LastName) == "" {
		return nil, 0, dErrors.New(dErrors.CodeValidation, "identity name is empty")
	}
	pool, err := m.prospects.ListByPosition(ctx, ident.Position)
	if err != nil {
		return nil, 0, fmt.Errorf("list candidates: %w", err)
	}
	name := canonical.NormalizeName(ident.FirstName + " " + ident.LastName)

	var (
		best  *canonical.Prospect
		score float64
	)
	for _, p := range pool {
		if s := m.score(name, ident.College, p); s > score {
			best, score = p, s
		}
	}
	return best, score, nil
}

func (m *Matcher) score(normalizedName, college string, p *canonical.Prospect) float64 {
	s := tokenSetRatio(normalizedName, canonical.NormalizeName(p.FirstName+" "+p.LastName))
	if collegeEqual(college, p.College) {
		s += m.cfg.CollegeBonus
	}
	if s > 100 {
		s = 100
	}
	return s
}

func (m *Matcher) classify(score float64) Confidence {
	switch {
	case score >= m.cfg.HighThreshold:
		return ConfidenceHigh
	case score >= m.cfg.MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func collegeEqual(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}

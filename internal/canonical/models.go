// Package canonical owns the deduplicated prospect record and its current
// field values, both per-source and post-reconciliation.
package canonical

import (
	"strings"
	"time"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// ProspectStatus tags the lifecycle state of a canonical prospect.
type ProspectStatus string

const (
	StatusActive    ProspectStatus = "active"
	StatusInactive  ProspectStatus = "inactive"
	StatusWithdrawn ProspectStatus = "withdrawn"
)

var validStatuses = map[ProspectStatus]bool{
	StatusActive:    true,
	StatusInactive:  true,
	StatusWithdrawn: true,
}

func (s ProspectStatus) IsValid() bool { return validStatuses[s] }
func (s ProspectStatus) String() string { return string(s) }

// Prospect is the canonical, long-lived record for one real-world player.
//
// Invariants:
//   - At most one Prospect per identity cluster (normalized name +
//     position + college); stores enforce this on create.
//   - A native id, once bound to a prospect, is only ever rebound by the
//     matcher's own convergence, never by hand.
type Prospect struct {
	ID           domain.ProspectID        `json:"id"`
	FirstName    string                   `json:"first_name"`
	LastName     string                   `json:"last_name"`
	Position     domain.Position          `json:"position"`
	College      string                   `json:"college"`
	NativeIDs    map[domain.Source]string `json:"native_ids"`
	Status       ProspectStatus           `json:"status"`
	QualityScore float64                  `json:"quality_score"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// NewProspect constructs a prospect, validating identity fields.
func NewProspect(id domain.ProspectID, firstName, lastName string, position domain.Position, college string, now time.Time) (*Prospect, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "prospect name cannot be empty")
	}
	if !position.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "prospect position is invalid")
	}
	return &Prospect{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Position:  position,
		College:   strings.TrimSpace(college),
		NativeIDs: make(map[domain.Source]string),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IdentityKey is the uniqueness key for the identity cluster invariant.
func (p *Prospect) IdentityKey() string {
	return IdentityKey(p.FirstName, p.LastName, p.Position, p.College)
}

// NativeID returns the bound native id for a source, if any.
func (p *Prospect) NativeID(source domain.Source) (string, bool) {
	id, ok := p.NativeIDs[source]
	return id, ok
}

// nameSuffixes are generational tokens dropped during normalization so
// "Marvin Harrison Jr." and "Marvin Harrison" cluster together.
var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// NormalizeName lower-cases, strips punctuation, and drops generational
// suffix tokens. Both the matcher and the cluster key use this so the
// two can never disagree about what "the same name" means.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	tokens := strings.Fields(b.String())
	out := tokens[:0]
	for _, tok := range tokens {
		if !nameSuffixes[tok] {
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// IdentityKey builds the cluster key from raw identity fields.
func IdentityKey(firstName, lastName string, position domain.Position, college string) string {
	return NormalizeName(firstName+" "+lastName) + "|" + string(position) + "|" + strings.ToLower(strings.TrimSpace(college))
}

package canonical

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Marvin Harrison Jr.", "marvin harrison"},
		{"Marvin Harrison", "marvin harrison"},
		{"Kool-Aid McKinstry", "kool-aid mckinstry"},
		{"D'Andre Swift", "dandre swift"},
		{"  JALEN   CARTER  ", "jalen carter"},
		{"Robert Griffin III", "robert griffin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestIdentityKeyClustersSuffixVariants(t *testing.T) {
	a := IdentityKey("Marvin", "Harrison Jr.", domain.PositionWR, "Ohio State")
	b := IdentityKey("Marvin", "Harrison", domain.PositionWR, "ohio state")
	assert.Equal(t, a, b)

	other := IdentityKey("Marvin", "Harrison", domain.PositionWR, "Michigan")
	assert.NotEqual(t, a, other)
}

func TestNewProspect(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	p, err := NewProspect(domain.ProspectID(uuid.New()), " Jalen ", "Carter", domain.PositionDT, " Georgia ", now)
	require.NoError(t, err)
	assert.Equal(t, "Jalen", p.FirstName)
	assert.Equal(t, "Georgia", p.College)
	assert.Equal(t, StatusActive, p.Status)
	assert.NotNil(t, p.NativeIDs)

	_, err = NewProspect(domain.ProspectID(uuid.New()), "", "Carter", domain.PositionDT, "Georgia", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewProspect(domain.ProspectID(uuid.New()), "Jalen", "Carter", domain.Position("GOALIE"), "Georgia", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNativeIDLookup(t *testing.T) {
	p, err := NewProspect(domain.ProspectID(uuid.New()), "Jalen", "Carter", domain.PositionDT, "Georgia", time.Now())
	require.NoError(t, err)

	_, ok := p.NativeID(domain.SourceNFL)
	assert.False(t, ok)

	p.NativeIDs[domain.SourceNFL] = "nfl-123"
	id, ok := p.NativeID(domain.SourceNFL)
	assert.True(t, ok)
	assert.Equal(t, "nfl-123", id)
}

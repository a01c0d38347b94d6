package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

func TestParseSource(t *testing.T) {
	src, err := domain.ParseSource("espn")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceESPN, src)

	_, err = domain.ParseSource("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = domain.ParseSource("yahoo")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestKnownSourcesOrderIsStable(t *testing.T) {
	assert.Equal(t, []domain.Source{domain.SourceNFL, domain.SourceESPN, domain.SourceCBS},
		domain.KnownSources())
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Position
	}{
		{"QB", domain.PositionQB},
		{"qb", domain.PositionQB},
		{" edge ", domain.PositionEDGE},
		{"DE", domain.PositionEDGE},
		{"OLB", domain.PositionLB},
		{"FS", domain.PositionS},
		{"NT", domain.PositionDT},
		{"G", domain.PositionOG},
	}
	for _, tt := range tests {
		got, err := domain.ParsePosition(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := domain.ParsePosition("GOALIE")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = domain.ParsePosition("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseExtractionID(t *testing.T) {
	id, err := domain.ParseExtractionID("extract-2026.04_01")
	require.NoError(t, err)
	assert.Equal(t, "extract-2026.04_01", id.String())

	for _, bad := range []string{"", "   ", "-starts-with-dash", "has space", "semi;colon"} {
		_, err := domain.ParseExtractionID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFieldValueNumericEquality(t *testing.T) {
	assert.True(t, domain.IntValue(310).Equal(domain.DecimalValue(310)))
	assert.False(t, domain.IntValue(310).Equal(domain.DecimalValue(310.5)))
	assert.False(t, domain.StringValue("310").Equal(domain.IntValue(310)))
	assert.True(t, domain.NullValue().Equal(domain.FieldValue{}))
}

func TestFieldValueAsFloat(t *testing.T) {
	f, ok := domain.DecimalValue(8.5).AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 8.5, f, 0.001)

	f, ok = domain.IntValue(310).AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 310, f, 0.001)

	_, ok = domain.StringValue("8.5").AsFloat()
	assert.False(t, ok)
}

func TestFieldValueJSONRoundTrip(t *testing.T) {
	values := []domain.FieldValue{
		domain.StringValue("Georgia"),
		domain.IntValue(310),
		domain.DecimalValue(4.38),
		domain.BoolValue(true),
		domain.DateValue(time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC)),
		domain.NullValue(),
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var back domain.FieldValue
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, v.Equal(back), string(data))
	}
}

func TestDateValueTruncatesToDay(t *testing.T) {
	d, ok := domain.DateValue(time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC)).AsDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestFromAny(t *testing.T) {
	v, err := domain.FromAny("2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, domain.KindDate, v.Kind())

	v, err = domain.FromAny("Jalen Carter")
	require.NoError(t, err)
	assert.Equal(t, domain.KindString, v.Kind())

	v, err = domain.FromAny(float64(310))
	require.NoError(t, err)
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 310, f, 0.001)

	v, err = domain.FromAny(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

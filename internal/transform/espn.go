package transform

import (
	"draftline/internal/identity"
	"draftline/internal/staging"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// ESPNTransformer handles espn rows. Grades arrive on a 0-100 scale and
// are rescaled to canonical; heights in inches.
type ESPNTransformer struct{}

func NewESPNTransformer() *ESPNTransformer { return &ESPNTransformer{} }

func (t *ESPNTransformer) Source() domain.Source { return domain.SourceESPN }

var espnChecks = map[string]FieldCheck{
	"grade":      {Kind: domain.KindDecimal, Min: bound(0), Max: bound(100)},
	"height":     {Kind: domain.KindDecimal, Min: bound(60), Max: bound(84)},
	"weight":     {Kind: domain.KindDecimal, Min: bound(150), Max: bound(400)},
	"forty_time": {Kind: domain.KindDecimal, Min: bound(4.0), Max: bound(6.5)},
	"status":     {Kind: domain.KindString, Enum: []string{"active", "out", "questionable"}},
}

func (t *ESPNTransformer) Validate(rec *staging.StagedRecord) error {
	if rec.Source != domain.SourceESPN {
		return dErrors.Newf(dErrors.CodeInvalidInput, "espn transformer got %q row", rec.Source)
	}
	if err := validateIdentityFields(rec); err != nil {
		return err
	}
	return checkAll(rec, espnChecks)
}

func (t *ESPNTransformer) ExtractIdentity(rec *staging.StagedRecord) (identity.Identity, error) {
	return extractCommonIdentity(rec)
}

func (t *ESPNTransformer) Normalize(rec *staging.StagedRecord, _ domain.ProspectID) ([]FieldChange, error) {
	var changes []FieldChange

	if raw, ok := rec.Fields["grade"].AsFloat(); ok {
		changes = append(changes, normalizeCentileGrade(raw))
	}
	changes = append(changes, normalizeSharedFields(rec)...)
	return changes, nil
}

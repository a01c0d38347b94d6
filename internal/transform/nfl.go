package transform

import (
	"draftline/internal/identity"
	"draftline/internal/staging"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// NFLTransformer handles the primary source. Grades arrive already on
// the canonical 5.0-10.0 scale; heights in inches.
type NFLTransformer struct{}

func NewNFLTransformer() *NFLTransformer { return &NFLTransformer{} }

func (t *NFLTransformer) Source() domain.Source { return domain.SourceNFL }

var nflChecks = map[string]FieldCheck{
	"grade":      {Kind: domain.KindDecimal, Min: bound(0), Max: bound(10)},
	"height":     {Kind: domain.KindDecimal, Min: bound(60), Max: bound(84)},
	"weight":     {Kind: domain.KindDecimal, Min: bound(150), Max: bound(400)},
	"forty_time": {Kind: domain.KindDecimal, Min: bound(4.0), Max: bound(6.5)},
	"status":     {Kind: domain.KindString, Enum: []string{"active", "out", "questionable"}},
}

func (t *NFLTransformer) Validate(rec *staging.StagedRecord) error {
	if rec.Source != domain.SourceNFL {
		return dErrors.Newf(dErrors.CodeInvalidInput, "nfl transformer got %q row", rec.Source)
	}
	if err := validateIdentityFields(rec); err != nil {
		return err
	}
	if _, ok := rec.Fields["grade"]; !ok {
		return dErrors.New(dErrors.CodeValidation, "missing required field \"grade\"")
	}
	return checkAll(rec, nflChecks)
}

func (t *NFLTransformer) ExtractIdentity(rec *staging.StagedRecord) (identity.Identity, error) {
	return extractCommonIdentity(rec)
}

func (t *NFLTransformer) Normalize(rec *staging.StagedRecord, _ domain.ProspectID) ([]FieldChange, error) {
	var changes []FieldChange

	if raw, ok := rec.Fields["grade"].AsFloat(); ok {
		changes = append(changes, normalizeNativeGrade(raw))
	}
	changes = append(changes, normalizeSharedFields(rec)...)
	return changes, nil
}

// normalizeSharedFields copies the measurement and status fields the
// sources agree on structurally. Height handling differs per source and
// stays in the source transformers.
func normalizeSharedFields(rec *staging.StagedRecord) []FieldChange {
	var changes []FieldChange
	for _, field := range []string{"first_name", "last_name", "college", "weight", "forty_time", "status", "return_date", "touchdowns", "yards"} {
		if v, ok := rec.Fields[field]; ok && !v.IsNull() {
			changes = append(changes, passthroughChange(field, v))
		}
	}
	if posRaw, ok := rec.Fields["position"].AsString(); ok {
		if pos, err := domain.ParsePosition(posRaw); err == nil {
			changes = append(changes, FieldChange{
				Field:     "position",
				Value:     domain.StringValue(string(pos)),
				RuleID:    "position_canonicalize_v1",
				RuleLogic: "fold source position aliases onto canonical position codes",
			})
		}
	}
	if v, ok := rec.Fields["height"]; ok && !v.IsNull() {
		changes = append(changes, passthroughChange("height", v))
	}
	return changes
}

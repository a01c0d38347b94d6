package transform

import (
	"strings"

	"draftline/internal/identity"
	"draftline/internal/staging"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// CBSTransformer handles cbs rows. Grades arrive on a 0-100 scale;
// positions use the site's letter shorthand ("T", "G", "DE") which the
// alias table folds onto canonical codes; heights arrive in decimal
// feet and are kept that way, unit handling belongs to reconciliation.
type CBSTransformer struct{}

func NewCBSTransformer() *CBSTransformer { return &CBSTransformer{} }

func (t *CBSTransformer) Source() domain.Source { return domain.SourceCBS }

var cbsChecks = map[string]FieldCheck{
	"grade":      {Kind: domain.KindDecimal, Min: bound(0), Max: bound(100)},
	"height":     {Kind: domain.KindDecimal, Min: bound(5.0), Max: bound(7.0)},
	"weight":     {Kind: domain.KindDecimal, Min: bound(150), Max: bound(400)},
	"forty_time": {Kind: domain.KindDecimal, Min: bound(4.0), Max: bound(6.5)},
	"status":     {Kind: domain.KindString, Enum: []string{"active", "out", "questionable"}},
}

func (t *CBSTransformer) Validate(rec *staging.StagedRecord) error {
	if rec.Source != domain.SourceCBS {
		return dErrors.Newf(dErrors.CodeInvalidInput, "cbs transformer got %q row", rec.Source)
	}
	if err := validateIdentityFields(rec); err != nil {
		return err
	}
	if posRaw, ok := rec.Fields["position"].AsString(); ok {
		if _, err := domain.ParsePosition(strings.TrimSpace(posRaw)); err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "unknown position %q", posRaw)
		}
	}
	return checkAll(rec, cbsChecks)
}

func (t *CBSTransformer) ExtractIdentity(rec *staging.StagedRecord) (identity.Identity, error) {
	return extractCommonIdentity(rec)
}

func (t *CBSTransformer) Normalize(rec *staging.StagedRecord, _ domain.ProspectID) ([]FieldChange, error) {
	var changes []FieldChange

	if raw, ok := rec.Fields["grade"].AsFloat(); ok {
		changes = append(changes, normalizeCentileGrade(raw))
	}
	changes = append(changes, normalizeSharedFields(rec)...)
	return changes, nil
}

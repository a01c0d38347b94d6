package transform

import (
	"fmt"
	"strings"

	"draftline/internal/identity"
	"draftline/internal/staging"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// SourceTransformer is the per-source contract. Implementations are
// stateless; a transformer may be used from many goroutines.
type SourceTransformer interface {
	Source() domain.Source
	// Validate checks the row is structurally usable. The returned error
	// carries the reason for the failure record.
	Validate(rec *staging.StagedRecord) error
	// ExtractIdentity builds the matching view from the row.
	ExtractIdentity(rec *staging.StagedRecord) (identity.Identity, error)
	// Normalize converts source-native fields into canonical field
	// changes for the resolved prospect.
	Normalize(rec *staging.StagedRecord, prospectID domain.ProspectID) ([]FieldChange, error)
}

// Registry maps sources to their transformers.
type Registry map[domain.Source]SourceTransformer

func NewRegistry(transformers ...SourceTransformer) Registry {
	r := make(Registry, len(transformers))
	for _, t := range transformers {
		r[t.Source()] = t
	}
	return r
}

func (r Registry) For(source domain.Source) (SourceTransformer, error) {
	t, ok := r[source]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "no transformer registered for source %q", source)
	}
	return t, nil
}

// Fields every source must deliver for a row to be matchable.
var identityFields = []string{"first_name", "last_name", "position"}

func validateIdentityFields(rec *staging.StagedRecord) error {
	for _, f := range identityFields {
		v, ok := rec.Fields[f]
		if !ok || v.IsNull() {
			return dErrors.Newf(dErrors.CodeValidation, "missing required field %q", f)
		}
		if s, ok := v.AsString(); !ok || strings.TrimSpace(s) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "field %q must be a non-empty string", f)
		}
	}
	return nil
}

func extractCommonIdentity(rec *staging.StagedRecord) (identity.Identity, error) {
	first, _ := rec.Fields["first_name"].AsString()
	last, _ := rec.Fields["last_name"].AsString()
	posRaw, _ := rec.Fields["position"].AsString()

	pos, err := domain.ParsePosition(posRaw)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("row %s: %w", rec.RowRef(), err)
	}

	ident := identity.Identity{
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Position:  pos,
		Source:    rec.Source,
		NativeID:  rec.NativeID,
	}
	if college, ok := rec.Fields["college"].AsString(); ok {
		ident.College = strings.TrimSpace(college)
	}
	return ident, nil
}

// passthroughChange copies a field unchanged, recording the identity
// rule so lineage still explains where the value came from.
func passthroughChange(field string, v domain.FieldValue) FieldChange {
	return FieldChange{
		Field:     field,
		Value:     v,
		RuleID:    "passthrough_v1",
		RuleLogic: "value copied unchanged from source",
	}
}

// checkAll runs the per-field constraints a transformer declares and
// fails on the first violation.
func checkAll(rec *staging.StagedRecord, checks map[string]FieldCheck) error {
	for field, check := range checks {
		v, ok := rec.Fields[field]
		if !ok {
			continue // absent optional fields are not a validation failure
		}
		if ok, reason := check.Check(field, v); !ok {
			return dErrors.New(dErrors.CodeValidation, reason)
		}
	}
	return nil
}

package transform

import (
	"fmt"

	"draftline/pkg/domain"
)

// FieldCheck is a declarative per-field constraint the transformers
// share: expected kind, inclusive numeric bounds, enum allowlist. Zero
// fields mean the constraint is not applied.
type FieldCheck struct {
	Kind domain.ValueKind
	Min  *float64
	Max  *float64
	Enum []string
}

// Check reports whether the value satisfies the constraint, with a
// human-readable reason on failure.
func (c FieldCheck) Check(field string, v domain.FieldValue) (bool, string) {
	if v.IsNull() {
		return false, fmt.Sprintf("%s: value is null", field)
	}
	if c.Kind != "" && !kindCompatible(c.Kind, v.Kind()) {
		return false, fmt.Sprintf("%s: expected %s, got %s", field, c.Kind, v.Kind())
	}
	if c.Min != nil || c.Max != nil {
		n, ok := v.AsFloat()
		if !ok {
			return false, fmt.Sprintf("%s: bounds check on non-numeric value", field)
		}
		if c.Min != nil && n < *c.Min {
			return false, fmt.Sprintf("%s: %v below minimum %v", field, n, *c.Min)
		}
		if c.Max != nil && n > *c.Max {
			return false, fmt.Sprintf("%s: %v above maximum %v", field, n, *c.Max)
		}
	}
	if len(c.Enum) > 0 {
		s, ok := v.AsString()
		if !ok {
			s = v.String()
		}
		for _, allowed := range c.Enum {
			if s == allowed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("%s: %q not in allowed values", field, s)
	}
	return true, ""
}

// kindCompatible treats ints as acceptable where decimals are expected;
// sources are inconsistent about "220" vs "220.0".
func kindCompatible(want, got domain.ValueKind) bool {
	if want == got {
		return true
	}
	return want == domain.KindDecimal && got == domain.KindInt
}

func bound(f float64) *float64 { return &f }

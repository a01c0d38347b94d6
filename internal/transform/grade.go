package transform

import (
	"math"

	"draftline/pkg/domain"
)

// Canonical grade scale. Every source's grade lands in [5.0, 10.0]
// after normalization, rounded to one decimal.
const (
	GradeMin = 5.0
	GradeMax = 10.0
)

const (
	ruleGradeRescale      = "grade_rescale_centile_v1"
	ruleGradeRescaleLogic = "clamp(raw, 0, 100) / 100 * 5 + 5, rounded to 1dp"
	ruleGradePassthrough  = "grade_clamp_native_v1"
	ruleGradeClampLogic   = "clamp(raw, 5.0, 10.0), rounded to 1dp"
)

// normalizeCentileGrade maps a 0-100 grade onto the canonical scale.
// Fixed points: 0 -> 5.0, 50 -> 7.5, 100 -> 10.0.
func normalizeCentileGrade(raw float64) FieldChange {
	clamped := clamp(raw, 0, 100)
	grade := round1(clamped/100*5 + 5)
	return FieldChange{
		Field:     "grade",
		Value:     domain.DecimalValue(grade),
		RuleID:    ruleGradeRescale,
		RuleLogic: ruleGradeRescaleLogic,
	}
}

// normalizeNativeGrade clamps a grade already on the canonical scale.
func normalizeNativeGrade(raw float64) FieldChange {
	grade := round1(clamp(raw, GradeMin, GradeMax))
	return FieldChange{
		Field:     "grade",
		Value:     domain.DecimalValue(grade),
		RuleID:    ruleGradePassthrough,
		RuleLogic: ruleGradeClampLogic,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package reconcile

import (
	"math"

	"draftline/internal/platform/config"
)

// Tolerance is the absolute difference two sources may disagree by
// before the disagreement is a conflict, in the field's canonical unit.
type Tolerance struct {
	Abs float64
	// ConvertFeet marks fields some sources report in decimal feet.
	// Values under the foot ceiling are scaled to inches before the
	// comparison so the tolerance applies in one unit.
	ConvertFeet bool
}

// Heights below this are decimal feet, above it inches. No prospect is
// under 10 inches or over 10 feet tall.
const feetCeiling = 10.0

func (t Tolerance) normalize(v float64) float64 {
	if t.ConvertFeet && v < feetCeiling {
		return v * 12
	}
	return v
}

// Within reports whether two values agree under the tolerance.
func (t Tolerance) Within(a, b float64) bool {
	return math.Abs(t.normalize(a)-t.normalize(b)) <= t.Abs
}

// toleranceTable maps fields to their comparison tolerances. Fields
// absent here conflict on any inequality.
func toleranceTable(cfg config.Tolerances) map[string]Tolerance {
	return map[string]Tolerance{
		"height":     {Abs: cfg.HeightInches, ConvertFeet: true},
		"weight":     {Abs: cfg.WeightPounds},
		"forty_time": {Abs: cfg.TimedSeconds},
	}
}

// PercentDiff is the reporting figure for numeric conflicts.
func PercentDiff(a, b float64) float64 {
	avg := (a + b) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(a-b) / math.Abs(avg) * 100
}

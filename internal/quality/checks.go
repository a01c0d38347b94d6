package quality

import (
	"context"
	"fmt"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// Physiological bounds for measurements. Heights below the feet ceiling
// are decimal feet and checked against the feet range, everything else
// against inches.
const (
	heightFeetCeiling = 10.0
	heightMinFeet     = 5.0
	heightMaxFeet     = 7.0
	heightMinInches   = 60.0
	heightMaxInches   = 84.0
	weightMinPounds   = 150.0
	weightMaxPounds   = 400.0
	fortyMinSeconds   = 4.0
	fortyMaxSeconds   = 6.5
)

// statRange bounds a counting stat for one position group.
type statRange struct {
	min, max float64
}

// positionStatRanges holds plausibility bounds per position. Positions
// absent from the map are not checked for that stat.
var positionStatRanges = map[domain.Position]map[string]statRange{
	domain.PositionQB: {"yards": {0, 6500}, "touchdowns": {0, 65}},
	domain.PositionRB: {"yards": {0, 2800}, "touchdowns": {0, 35}},
	domain.PositionWR: {"yards": {0, 2200}, "touchdowns": {0, 25}},
	domain.PositionTE: {"yards": {0, 1400}, "touchdowns": {0, 18}},
}

// RunTableChecks sweeps the stored values and returns one result per
// dataset-wide invariant.
func (v *Validator) RunTableChecks(ctx context.Context) ([]CheckResult, error) {
	var checks []CheckResult

	dupes, err := v.prospects.CountDuplicateIdentityClusters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count identity clusters")
	}
	checks = append(checks, CheckResult{
		Name:     "duplicate_identity_clusters",
		Passed:   dupes == 0,
		Errors:   dupes,
		Message:  fmt.Sprintf("%d identity clusters resolve to more than one prospect", dupes),
		Critical: true,
	})

	positions, err := v.positionIndex(ctx)
	if err != nil {
		return nil, err
	}

	gradeErrs, err := v.countOutOfRange(ctx, positions, "grade", func(_ domain.Position, f float64) bool {
		return f >= 5.0 && f <= 10.0
	})
	if err != nil {
		return nil, err
	}
	checks = append(checks, CheckResult{
		Name:     "grade_bounds",
		Passed:   gradeErrs == 0,
		Errors:   gradeErrs,
		Message:  fmt.Sprintf("%d grades outside [5.0, 10.0]", gradeErrs),
		Critical: true,
	})

	physErrs := 0
	for field, within := range map[string]func(domain.Position, float64) bool{
		"height":     func(_ domain.Position, f float64) bool { return heightWithinBounds(f) },
		"weight":     func(_ domain.Position, f float64) bool { return f >= weightMinPounds && f <= weightMaxPounds },
		"forty_time": func(_ domain.Position, f float64) bool { return f >= fortyMinSeconds && f <= fortyMaxSeconds },
	} {
		n, err := v.countOutOfRange(ctx, positions, field, within)
		if err != nil {
			return nil, err
		}
		physErrs += n
	}
	checks = append(checks, CheckResult{
		Name:     "physiological_bounds",
		Passed:   physErrs == 0,
		Errors:   physErrs,
		Message:  fmt.Sprintf("%d measurements outside physiological bounds", physErrs),
		Critical: false,
	})

	statErrs := 0
	for _, field := range []string{"yards", "touchdowns"} {
		n, err := v.countOutOfRange(ctx, positions, field, func(pos domain.Position, f float64) bool {
			ranges, ok := positionStatRanges[pos]
			if !ok {
				return true
			}
			r, ok := ranges[field]
			if !ok {
				return true
			}
			return f >= r.min && f <= r.max
		})
		if err != nil {
			return nil, err
		}
		statErrs += n
	}
	checks = append(checks, CheckResult{
		Name:     "position_stat_ranges",
		Passed:   statErrs == 0,
		Errors:   statErrs,
		Message:  fmt.Sprintf("%d stat lines implausible for the prospect's position", statErrs),
		Critical: false,
	})

	return checks, nil
}

// countOutOfRange walks every stored value for a field across all
// sources and counts the ones the predicate rejects. Non-numeric values
// are skipped; kind enforcement happens at transform time.
func (v *Validator) countOutOfRange(ctx context.Context, positions map[domain.ProspectID]domain.Position, field string, within func(domain.Position, float64) bool) (int, error) {
	count := 0
	for _, source := range domain.KnownSources() {
		values, err := v.values.AllValues(ctx, source, field)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "load field values")
		}
		for id, value := range values {
			f, ok := value.AsFloat()
			if !ok {
				continue
			}
			if !within(positions[id], f) {
				count++
			}
		}
	}
	return count, nil
}

func (v *Validator) positionIndex(ctx context.Context) (map[domain.ProspectID]domain.Position, error) {
	prospects, err := v.prospects.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list prospects")
	}
	index := make(map[domain.ProspectID]domain.Position, len(prospects))
	for _, p := range prospects {
		index[p.ID] = p.Position
	}
	return index, nil
}

func heightWithinBounds(f float64) bool {
	if f < heightFeetCeiling {
		return f >= heightMinFeet && f <= heightMaxFeet
	}
	return f >= heightMinInches && f <= heightMaxInches
}

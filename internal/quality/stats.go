package quality

import "math"

// Mean of a sample. Zero for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev is the n-1 standard deviation. Zero for samples smaller
// than two.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// ZScore of a value against a cohort. Second return is false when the
// cohort's stdev is zero, in which case no outlier call is possible.
func ZScore(value float64, cohort []float64) (float64, bool) {
	stdev := SampleStdDev(cohort)
	if stdev == 0 {
		return 0, false
	}
	return (value - Mean(cohort)) / stdev, true
}

// PercentChange from prior to current, as a positive percentage.
func PercentChange(prior, current float64) float64 {
	if prior == 0 {
		return 0
	}
	return math.Abs(current-prior) / math.Abs(prior) * 100
}

package stats

import "math"

// WilsonLowerBound returns the lower bound of the Wilson score confidence
// interval for a binomial proportion. It is a conservative estimate of the
// true conversion rate: with few samples the bound stays low even when the
// observed rate looks good, which is exactly the property winner selection
// needs. Zero trials yield 0 (a variant with no traffic can never win).
func WilsonLowerBound(successes, trials int, z float64) float64 {
	lower, _ := WilsonInterval(successes, trials, z)
	return lower
}

// WilsonInterval returns both bounds of the Wilson score interval, clamped to
// [0, 1]. More accurate for small samples than the normal approximation.
func WilsonInterval(successes, trials int, z float64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = center - spread
	upper = center + spread

	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}
	return lower, upper
}

// ZScore maps a two-sided confidence level to its z-score.
// Common values:
//   - 0.90 -> 1.645
//   - 0.95 -> 1.96
//   - 0.99 -> 2.576
func ZScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	case confidence >= 0.85:
		return 1.44
	default:
		return 1.28
	}
}

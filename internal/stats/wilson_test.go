package stats_test

import (
	"testing"

	"github.com/launchforge/launchforge/internal/stats"
)

func TestWilsonInterval_50PercentConversion(t *testing.T) {
	// 50 successes out of 100 trials
	lower, upper := stats.WilsonInterval(50, 100, 1.96)

	// Expected: approximately [0.40, 0.60] with some tolerance
	if lower < 0.38 || lower > 0.42 {
		t.Errorf("lower bound %f not in expected range [0.38, 0.42]", lower)
	}
	if upper < 0.58 || upper > 0.62 {
		t.Errorf("upper bound %f not in expected range [0.58, 0.62]", upper)
	}
}

func TestWilsonInterval_LowConversion(t *testing.T) {
	// 5 successes out of 100 trials (5% conversion)
	lower, upper := stats.WilsonInterval(5, 100, 1.96)

	if lower < 0.01 || lower > 0.03 {
		t.Errorf("lower bound %f not in expected range [0.01, 0.03]", lower)
	}
	if upper < 0.09 || upper > 0.13 {
		t.Errorf("upper bound %f not in expected range [0.09, 0.13]", upper)
	}
}

func TestWilsonLowerBound_ZeroTrials(t *testing.T) {
	if lb := stats.WilsonLowerBound(0, 0, 1.96); lb != 0 {
		t.Errorf("expected 0 for zero trials, got %f", lb)
	}
}

func TestWilsonLowerBound_ZeroSuccesses(t *testing.T) {
	if lb := stats.WilsonLowerBound(0, 100, 1.96); lb != 0 {
		t.Errorf("expected clamped 0 lower bound, got %f", lb)
	}
}

func TestWilsonLowerBound_AllSuccesses(t *testing.T) {
	lb := stats.WilsonLowerBound(100, 100, 1.96)
	if lb <= 0.9 || lb > 1 {
		t.Errorf("lower bound %f not in expected range (0.9, 1]", lb)
	}
}

// For fixed views, more conversions must never lower the bound.
func TestWilsonLowerBound_MonotonicInConversions(t *testing.T) {
	views := 500
	prev := -1.0
	for conversions := 0; conversions <= views; conversions += 10 {
		lb := stats.WilsonLowerBound(conversions, views, 1.96)
		if lb < prev {
			t.Fatalf("lower bound decreased at %d/%d: %f < %f", conversions, views, lb, prev)
		}
		prev = lb
	}
}

func TestZScore(t *testing.T) {
	cases := []struct {
		confidence float64
		want       float64
	}{
		{0.99, 2.576},
		{0.95, 1.96},
		{0.90, 1.645},
		{0.85, 1.44},
		{0.50, 1.28},
	}
	for _, c := range cases {
		if got := stats.ZScore(c.confidence); got != c.want {
			t.Errorf("ZScore(%v) = %v, want %v", c.confidence, got, c.want)
		}
	}
}

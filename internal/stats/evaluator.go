package stats

import "sort"

// Counts is the raw per-variant input to the evaluator.
type Counts struct {
	Views       int
	Conversions int
}

// VariantResult is one variant's evaluated statistics.
type VariantResult struct {
	VariantID   string  `json:"variant_id"`
	Views       int     `json:"views"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
	LowerBound  float64 `json:"lower_bound"`
}

// Evaluation is the evaluator's output. WinnerID is empty while the data does
// not support declaring a winner; that is the steady state, not an error.
type Evaluation struct {
	WinnerID string          `json:"winner_id,omitempty"`
	Variants []VariantResult `json:"variants"`
}

// EvaluatorConfig holds the winner-declaration thresholds. The defaults are
// configuration, not protocol: callers may tighten or loosen them.
type EvaluatorConfig struct {
	Z              float64 // z-score for the Wilson bound
	MinViews       int     // sample floor for the top-ranked variant
	MinConversions int     // conversion floor for the top-ranked variant
	MinMargin      float64 // required absolute lower-bound gap over the runner-up
}

const (
	defaultZ              = 1.96 // 95% two-sided
	defaultMinViews       = 100
	defaultMinConversions = 10
	defaultMinMargin      = 0.01
)

func (c EvaluatorConfig) withDefaults() EvaluatorConfig {
	if c.Z == 0 {
		c.Z = defaultZ
	}
	if c.MinViews == 0 {
		c.MinViews = defaultMinViews
	}
	if c.MinConversions == 0 {
		c.MinConversions = defaultMinConversions
	}
	if c.MinMargin == 0 {
		c.MinMargin = defaultMinMargin
	}
	return c
}

// Evaluate ranks variants by Wilson lower bound and declares a winner only
// when the top variant clears the sample floors and beats the runner-up's
// bound by more than the margin. Pure: no I/O, safe to call repeatedly.
func Evaluate(counts map[string]Counts, cfg EvaluatorConfig) Evaluation {
	cfg = cfg.withDefaults()

	results := make([]VariantResult, 0, len(counts))
	for id, c := range counts {
		rate := 0.0
		if c.Views > 0 {
			rate = float64(c.Conversions) / float64(c.Views)
		}
		results = append(results, VariantResult{
			VariantID:   id,
			Views:       c.Views,
			Conversions: c.Conversions,
			Rate:        rate,
			LowerBound:  WilsonLowerBound(c.Conversions, c.Views, cfg.Z),
		})
	}

	// Descending by lower bound; variant ID breaks ties so output is stable.
	sort.Slice(results, func(i, j int) bool {
		if results[i].LowerBound != results[j].LowerBound {
			return results[i].LowerBound > results[j].LowerBound
		}
		return results[i].VariantID < results[j].VariantID
	})

	eval := Evaluation{Variants: results}
	if len(results) < 2 {
		return eval
	}

	best, runnerUp := results[0], results[1]
	if best.Views >= cfg.MinViews && best.Conversions >= cfg.MinConversions &&
		best.LowerBound > runnerUp.LowerBound+cfg.MinMargin {
		eval.WinnerID = best.VariantID
	}
	return eval
}

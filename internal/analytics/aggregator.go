package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/launchforge/launchforge/internal/stats"
	"github.com/launchforge/launchforge/internal/store"
)

// Counter is the storage boundary for grouped event counts. The SQLite store
// satisfies it with indexed COUNT queries; an in-memory rollup could replace
// it at low volume without touching the aggregation logic.
type Counter interface {
	ViewCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error)
	ConversionCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error)
}

// Aggregator computes per-variant view/conversion counts over a test's
// active window.
type Aggregator struct {
	counter Counter
}

func NewAggregator(c Counter) *Aggregator {
	return &Aggregator{counter: c}
}

// TestCounts counts events for every participant of t, scoped to the test's
// project and created at or after the test's start (the epoch if it never
// started). Variants with no events appear with zero counts; consumers never
// distinguish "missing" from "zero".
func (a *Aggregator) TestCounts(ctx context.Context, t *store.Test) (map[string]stats.Counts, error) {
	since := time.Unix(0, 0)
	if t.StartedAt != nil {
		since = *t.StartedAt
	}

	counts := make(map[string]stats.Counts, len(t.ChallengerIDs)+1)
	for _, id := range t.VariantIDs() {
		views, err := a.counter.ViewCount(ctx, t.ProjectID, id, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count views for %s: %w", id, err)
		}
		conversions, err := a.counter.ConversionCount(ctx, t.ProjectID, id, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count conversions for %s: %w", id, err)
		}
		counts[id] = stats.Counts{Views: views, Conversions: conversions}
	}
	return counts, nil
}

package ab

import (
	"context"
	"fmt"

	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/store"
)

// Lifecycle drives a test through DRAFT -> RUNNING -> {FINISHED, STOPPED}.
// It is the only component that mutates test and variant status fields.
type Lifecycle struct {
	store store.Store
	log   *logger.Logger
}

func NewLifecycle(s store.Store, log *logger.Logger) *Lifecycle {
	return &Lifecycle{store: s, log: log}
}

// Start moves a draft test to RUNNING. A test may only start with a control,
// at least one challenger, and a positive weight for every participant.
func (l *Lifecycle) Start(ctx context.Context, testID string) error {
	t, err := l.store.GetTest(ctx, testID)
	if err != nil {
		return err
	}

	if t.ControlID == "" {
		return fmt.Errorf("%w: test has no control variant", store.ErrInvalidState)
	}
	if len(t.ChallengerIDs) == 0 {
		return fmt.Errorf("%w: test has no challengers", store.ErrInvalidState)
	}
	for _, id := range t.VariantIDs() {
		w, ok := t.Weights[id]
		if !ok {
			return fmt.Errorf("%w: no weight for variant %s", store.ErrInvalidState, id)
		}
		if w <= 0 {
			return fmt.Errorf("%w: weight for variant %s must be positive", store.ErrInvalidState, id)
		}
	}

	if err := l.store.StartTest(ctx, testID); err != nil {
		return err
	}
	l.log.Info("test started", "test_id", testID, "project_id", t.ProjectID)
	return nil
}

// Stop ends a running test without a winner. No swap happens, so the control
// keeps the slug and new traffic reverts to it; existing assignments stay for
// audit but are no longer consulted.
func (l *Lifecycle) Stop(ctx context.Context, testID string) error {
	if err := l.store.StopTest(ctx, testID); err != nil {
		return err
	}
	l.log.Info("test stopped", "test_id", testID)
	return nil
}

// PromoteWinner finishes a running test with winnerID. When the winner is a
// challenger the control's slug relocates to it atomically; when it is the
// control, the slug already points at the right content and only the test row
// changes. Promoting a finished test or an outside variant is rejected.
func (l *Lifecycle) PromoteWinner(ctx context.Context, testID, winnerID string) error {
	if err := l.store.PromoteWinner(ctx, testID, winnerID); err != nil {
		return err
	}
	l.log.Info("winner promoted", "test_id", testID, "winner_variant_id", winnerID)
	return nil
}

package ab

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/privacy"
	"github.com/launchforge/launchforge/internal/store"
)

// Engine assigns visitors to test variants. Assignments are sticky: a visitor
// presenting the same session key sees the same variant for the test's whole
// duration, and once a winner is recorded every caller gets the winner.
type Engine struct {
	store store.Store
	log   *logger.Logger

	mu        sync.Mutex
	randFloat func() float64 // returns a uniform value in [0, 1)
}

func NewEngine(s store.Store, log *logger.Logger) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Engine{
		store:     s,
		log:       log,
		randFloat: rng.Float64,
	}
}

// SetRandFloat replaces the random source. Tests inject fixed draws to pin
// selection boundaries.
func (e *Engine) SetRandFloat(f func() float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.randFloat = f
}

// Assign resolves the variant testID should serve to the caller. sessionKey
// may be empty, in which case the draw is fresh and nothing is persisted.
// The only hard error besides store failures is an unknown test.
func (e *Engine) Assign(ctx context.Context, testID, sessionKey string) (string, error) {
	t, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return "", err
	}

	// A concluded test is stable for everyone.
	if t.WinnerVariantID != "" {
		return t.WinnerVariantID, nil
	}

	var keyHash string
	if sessionKey != "" {
		keyHash = privacy.HashKey(sessionKey)
		a, err := e.store.GetAssignment(ctx, testID, keyHash)
		if err == nil {
			return a.VariantID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}

	picked := e.pick(t.Weights)

	if keyHash == "" {
		return picked, nil
	}

	// Persist; under a concurrent first visit the store keeps whichever row
	// landed first and hands it back, so the losing draw never escapes.
	a, err := e.store.PutAssignment(ctx, testID, keyHash, picked)
	if err != nil {
		return "", fmt.Errorf("failed to persist assignment: %w", err)
	}
	if a.VariantID != picked {
		e.log.Debug("assignment race resolved", "test_id", testID, "kept", a.VariantID)
	}
	return a.VariantID, nil
}

// pick draws a variant proportionally to its weight. IDs are walked in sorted
// order so injected draws land deterministically.
func (e *Engine) pick(weights map[string]int) string {
	ids := make([]string, 0, len(weights))
	total := 0
	for id, w := range weights {
		ids = append(ids, id)
		total += w
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return ""
	}

	e.mu.Lock()
	draw := e.randFloat() * float64(total)
	e.mu.Unlock()

	for _, id := range ids {
		draw -= float64(weights[id])
		if draw <= 0 {
			return id
		}
	}
	// Unreachable with positive weights; keep the first ID as the fallback.
	return ids[0]
}

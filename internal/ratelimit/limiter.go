package ratelimit

import (
	"sync"
	"time"
)

// Limiter answers whether a keyed caller may proceed. Implementations must be
// safe for concurrent use. The interface exists so a distributed limiter can
// replace the in-process one without touching callers.
type Limiter interface {
	Allow(key string) bool
}

// Config holds the window and threshold for a sliding-window limiter.
type Config struct {
	Limit  int           // max events per window per key
	Window time.Duration // window length
}

// SlidingWindow is an in-process sliding-window limiter keyed by string
// (typically a daily IP hash). Old timestamps are pruned on access and idle
// keys are swept by a background loop.
type SlidingWindow struct {
	config  Config
	entries sync.Map // map[string]*windowEntry
	now     func() time.Time
	stop    chan struct{}
}

type windowEntry struct {
	mu   sync.Mutex
	hits []time.Time
}

func NewSlidingWindow(config Config) *SlidingWindow {
	if config.Limit <= 0 {
		config.Limit = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	l := &SlidingWindow{
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// newSlidingWindowAt pins the clock and skips the sweeper. Used in tests.
func newSlidingWindowAt(config Config, now func() time.Time) *SlidingWindow {
	return &SlidingWindow{config: config, now: now, stop: make(chan struct{})}
}

// Allow records a hit for key and reports whether it fits in the window.
func (l *SlidingWindow) Allow(key string) bool {
	v, _ := l.entries.LoadOrStore(key, &windowEntry{})
	e := v.(*windowEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.config.Window)

	kept := e.hits[:0]
	for _, h := range e.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	e.hits = kept

	if len(e.hits) >= l.config.Limit {
		return false
	}
	e.hits = append(e.hits, now)
	return true
}

// Close stops the background sweeper.
func (l *SlidingWindow) Close() {
	close(l.stop)
}

func (l *SlidingWindow) cleanupLoop() {
	ticker := time.NewTicker(l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := l.now().Add(-l.config.Window)
			l.entries.Range(func(key, v any) bool {
				e := v.(*windowEntry)
				e.mu.Lock()
				stale := len(e.hits) == 0 || !e.hits[len(e.hits)-1].After(cutoff)
				e.mu.Unlock()
				if stale {
					l.entries.Delete(key)
				}
				return true
			})
		}
	}
}

package analytics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/privacy"
	"github.com/launchforge/launchforge/internal/stats"
	"github.com/launchforge/launchforge/internal/store"
)

const DefaultRetention = 90 * 24 * time.Hour

// Service records privacy-safe view and conversion events and aggregates them
// for the winner evaluator and the dashboard. Raw IPs and user agents never
// reach storage; they are hashed on the way in.
type Service struct {
	store      store.Store
	hasher     *privacy.Hasher
	aggregator *Aggregator
	log        *logger.Logger
	retention  time.Duration

	conversionSeq atomic.Uint64
}

func NewService(s store.Store, hasher *privacy.Hasher, log *logger.Logger, retention time.Duration) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		store:      s,
		hasher:     hasher,
		aggregator: NewAggregator(s),
		log:        log,
		retention:  retention,
	}
}

// ViewParams carries one page view. IP and UserAgent are raw request values;
// the service hashes them before anything is written.
type ViewParams struct {
	ProjectID  string
	VariantID  string
	Slug       string
	Referrer   string
	UTM        store.UTM
	SessionKey string
	IP         string
	UserAgent  string
}

func (s *Service) RecordView(ctx context.Context, p ViewParams) error {
	e := &store.ViewEvent{
		ProjectID:  p.ProjectID,
		VariantID:  p.VariantID,
		Slug:       p.Slug,
		Referrer:   p.Referrer,
		UTM:        p.UTM,
		SessionKey: p.SessionKey,
	}
	if p.IP != "" {
		e.IPHash = s.hasher.HashIP(p.IP)
	}
	if p.UserAgent != "" {
		e.UAHash = privacy.HashKey(p.UserAgent)
	}
	return s.store.InsertViewEvent(ctx, e)
}

// ConversionParams carries one conversion, tied to the captured lead.
type ConversionParams struct {
	ProjectID  string
	VariantID  string
	LeadID     string
	Revenue    float64
	UTM        store.UTM
	SessionKey string
	IP         string
}

func (s *Service) RecordConversion(ctx context.Context, p ConversionParams) error {
	// Opportunistic pruning piggybacks on conversion traffic so a forgotten
	// cron can't grow the tables forever. Every 100th write, not random, so
	// tests stay deterministic.
	if s.conversionSeq.Add(1)%100 == 0 {
		go func() {
			n, err := s.Prune(context.Background())
			if err != nil {
				s.log.Warn("inline event prune failed", "error", err)
				return
			}
			if n > 0 {
				s.log.Info("pruned expired events", "deleted", n)
			}
		}()
	}

	e := &store.ConversionEvent{
		ProjectID:  p.ProjectID,
		VariantID:  p.VariantID,
		LeadID:     p.LeadID,
		Revenue:    p.Revenue,
		UTM:        p.UTM,
		SessionKey: p.SessionKey,
	}
	if p.IP != "" {
		e.IPHash = s.hasher.HashIP(p.IP)
	}
	return s.store.InsertConversionEvent(ctx, e)
}

// TestCounts aggregates per-variant stats over the test's active window.
func (s *Service) TestCounts(ctx context.Context, t *store.Test) (map[string]stats.Counts, error) {
	return s.aggregator.TestCounts(ctx, t)
}

// HashIP exposes the daily IP hash for callers doing their own keying, e.g.
// rate limiters on the tracking and lead paths.
func (s *Service) HashIP(ip string) string {
	return s.hasher.HashIP(ip)
}

// Prune deletes events older than the retention window and returns the number
// of rows removed.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	return s.store.PruneEvents(ctx, cutoff)
}

// Daily returns a zero-filled per-day rollup for the trailing days window,
// oldest day first.
func (s *Service) Daily(ctx context.Context, projectID string, days int) ([]store.DailyCount, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	counts, err := s.store.DailyCounts(ctx, projectID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]store.DailyCount, len(counts))
	for _, c := range counts {
		byDay[c.Date] = c
	}

	out := make([]store.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		if c, ok := byDay[date]; ok {
			out = append(out, c)
		} else {
			out = append(out, store.DailyCount{Date: date})
		}
	}
	return out, nil
}

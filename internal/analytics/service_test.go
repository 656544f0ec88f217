package analytics_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/privacy"
	"github.com/launchforge/launchforge/internal/store"
)

func setupTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "launchforge-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := store.Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(tmpDir)
	})

	return s
}

func newService(t *testing.T, s *store.SQLiteStore) *analytics.Service {
	t.Helper()
	return analytics.NewService(s, privacy.NewHasher("test-salt"), logger.NewNop(), 0)
}

func TestRecordView_HashesRawValues(t *testing.T) {
	s := setupTestDB(t)
	svc := newService(t, s)
	ctx := context.Background()

	err := svc.RecordView(ctx, analytics.ViewParams{
		ProjectID: "p1",
		VariantID: "v1",
		Slug:      "landing",
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("failed to record view: %v", err)
	}

	rows, err := s.DB().Query(`SELECT ip_hash, ua_hash FROM view_events`)
	if err != nil {
		t.Fatalf("failed to query events: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var ipHash, uaHash string
		if err := rows.Scan(&ipHash, &uaHash); err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		count++
		if ipHash == "" || ipHash == "203.0.113.7" {
			t.Errorf("raw IP leaked or missing hash: %q", ipHash)
		}
		if uaHash == "" || uaHash == "Mozilla/5.0" {
			t.Errorf("raw user agent leaked or missing hash: %q", uaHash)
		}
		if len(ipHash) != 64 || len(uaHash) != 64 {
			t.Errorf("expected hex sha256 digests, got %q and %q", ipHash, uaHash)
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 view event, got %d", count)
	}
}

func TestTestCounts_ZeroFilledAndWindowed(t *testing.T) {
	s := setupTestDB(t)
	svc := newService(t, s)
	ctx := context.Background()

	control, _ := s.CreateVariant(ctx, "p1", "")
	challenger, _ := s.CreateVariant(ctx, "p1", "")
	test, err := s.CreateTest(ctx, "p1", control.ID, []string{challenger.ID},
		map[string]int{control.ID: 1, challenger.ID: 1})
	if err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	// A view recorded before the test starts must not count.
	if err := svc.RecordView(ctx, analytics.ViewParams{ProjectID: "p1", VariantID: control.ID}); err != nil {
		t.Fatalf("failed to record view: %v", err)
	}

	// started_at is stored at second resolution; push it past the early view.
	time.Sleep(1100 * time.Millisecond)
	if err := s.StartTest(ctx, test.ID); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	test, _ = s.GetTest(ctx, test.ID)

	for i := 0; i < 3; i++ {
		if err := svc.RecordView(ctx, analytics.ViewParams{ProjectID: "p1", VariantID: control.ID}); err != nil {
			t.Fatalf("failed to record view: %v", err)
		}
	}
	err = svc.RecordConversion(ctx, analytics.ConversionParams{ProjectID: "p1", VariantID: control.ID, LeadID: "l1"})
	if err != nil {
		t.Fatalf("failed to record conversion: %v", err)
	}

	counts, err := svc.TestCounts(ctx, test)
	if err != nil {
		t.Fatalf("failed to aggregate: %v", err)
	}

	got := counts[control.ID]
	if got.Views != 3 {
		t.Errorf("control views = %d, want 3 (pre-start view excluded)", got.Views)
	}
	if got.Conversions != 1 {
		t.Errorf("control conversions = %d, want 1", got.Conversions)
	}

	// The challenger has no events but still appears, zeroed.
	zero, ok := counts[challenger.ID]
	if !ok {
		t.Fatal("challenger missing from aggregation")
	}
	if zero.Views != 0 || zero.Conversions != 0 {
		t.Errorf("challenger counts = %+v, want zeros", zero)
	}
}

func TestDaily_ZeroFillsTrailingWindow(t *testing.T) {
	s := setupTestDB(t)
	svc := newService(t, s)
	ctx := context.Background()

	if err := svc.RecordView(ctx, analytics.ViewParams{ProjectID: "p1", VariantID: "v1"}); err != nil {
		t.Fatalf("failed to record view: %v", err)
	}

	days := 7
	rollup, err := svc.Daily(ctx, "p1", days)
	if err != nil {
		t.Fatalf("failed to roll up: %v", err)
	}
	if len(rollup) != days {
		t.Fatalf("expected %d days, got %d", days, len(rollup))
	}

	today := time.Now().UTC().Format("2006-01-02")
	last := rollup[len(rollup)-1]
	if last.Date != today {
		t.Errorf("last day = %s, want today %s", last.Date, today)
	}
	if last.Views != 1 {
		t.Errorf("today's views = %d, want 1", last.Views)
	}
	for _, day := range rollup[:len(rollup)-1] {
		if day.Views != 0 || day.Conversions != 0 {
			t.Errorf("day %s should be zero-filled, got %+v", day.Date, day)
		}
	}
}

func TestPrune_RespectsRetention(t *testing.T) {
	s := setupTestDB(t)
	// 1h retention; fresh events must survive a prune.
	svc := analytics.NewService(s, privacy.NewHasher("test-salt"), logger.NewNop(), time.Hour)
	ctx := context.Background()

	if err := svc.RecordView(ctx, analytics.ViewParams{ProjectID: "p1", VariantID: "v1"}); err != nil {
		t.Fatalf("failed to record view: %v", err)
	}

	n, err := svc.Prune(ctx)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows pruned, got %d", n)
	}

	// Age the event past the retention window directly in storage.
	old := time.Now().Add(-2 * time.Hour).Unix()
	if _, err := s.DB().Exec(`UPDATE view_events SET created_at = ?`, old); err != nil {
		t.Fatalf("failed to age event: %v", err)
	}

	n, err = svc.Prune(ctx)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row pruned, got %d", n)
	}
}

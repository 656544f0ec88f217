package leads_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/leads"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/privacy"
	"github.com/launchforge/launchforge/internal/ratelimit"
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

// allowAll never rejects; tests that exercise the limit use a real window.
type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

func setupService(t *testing.T, s *store.SQLiteStore, limiter ratelimit.Limiter) (*leads.Service, *store.Variant) {
	t.Helper()
	log := logger.NewNop()
	a := analytics.NewService(s, privacy.NewHasher("test-salt"), log, 0)
	svc := leads.NewService(s, a, limiter, log)

	variant, err := s.CreateVariant(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("failed to create variant: %v", err)
	}
	return svc, variant
}

func TestSubmit_StoresLeadAndConversion(t *testing.T) {
	s := setupTestDB(t)
	svc, variant := setupService(t, s, allowAll{})
	ctx := context.Background()

	lead, err := svc.Submit(ctx, leads.Input{
		VariantID: variant.ID,
		Name:      "  Jordan  ",
		Email:     "jordan@example.com",
		IP:        "203.0.113.7",
		UTM:       store.UTM{Source: "newsletter"},
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	if lead == nil {
		t.Fatal("expected a lead")
	}
	if lead.Name != "Jordan" {
		t.Errorf("name not trimmed: %q", lead.Name)
	}
	if lead.ProjectID != "p1" {
		t.Errorf("project not derived from variant: %q", lead.ProjectID)
	}
	if lead.IPHash == "" || lead.IPHash == "203.0.113.7" {
		t.Errorf("raw IP leaked or missing hash: %q", lead.IPHash)
	}

	// The matching conversion event landed against the variant.
	n, err := s.ConversionCount(ctx, "p1", variant.ID, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("failed to count conversions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 conversion, got %d", n)
	}
}

func TestSubmit_HoneypotDropsSilently(t *testing.T) {
	s := setupTestDB(t)
	svc, variant := setupService(t, s, allowAll{})
	ctx := context.Background()

	lead, err := svc.Submit(ctx, leads.Input{
		VariantID: variant.ID,
		Name:      "Bot",
		Email:     "bot@example.com",
		Honeypot:  "gotcha",
	})
	if err != nil {
		t.Fatalf("honeypot submissions must not error: %v", err)
	}
	if lead != nil {
		t.Error("honeypot submissions must not produce a lead")
	}

	list, err := s.ListLeads(ctx, "p1")
	if err != nil {
		t.Fatalf("failed to list leads: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no stored leads, got %d", len(list))
	}
	if n, _ := s.ConversionCount(ctx, "p1", variant.ID, time.Unix(0, 0)); n != 0 {
		t.Errorf("expected no conversions, got %d", n)
	}
}

func TestSubmit_Validation(t *testing.T) {
	s := setupTestDB(t)
	svc, variant := setupService(t, s, allowAll{})
	ctx := context.Background()

	cases := []struct {
		name  string
		input leads.Input
	}{
		{"empty name", leads.Input{VariantID: variant.ID, Name: "   ", Email: "a@example.com"}},
		{"missing email", leads.Input{VariantID: variant.ID, Name: "A"}},
		{"malformed email", leads.Input{VariantID: variant.ID, Name: "A", Email: "not-an-email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.input)
			if !errors.Is(err, leads.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	_, err := svc.Submit(ctx, leads.Input{VariantID: "missing", Name: "A", Email: "a@example.com"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown variant, got %v", err)
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	s := setupTestDB(t)
	limiter := ratelimit.NewSlidingWindow(ratelimit.Config{Limit: 2, Window: time.Minute})
	defer limiter.Close()
	svc, variant := setupService(t, s, limiter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, leads.Input{
			VariantID: variant.ID,
			Name:      "A",
			Email:     "a@example.com",
			IP:        "203.0.113.7",
		})
		if err != nil {
			t.Fatalf("submission %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Submit(ctx, leads.Input{
		VariantID: variant.ID,
		Name:      "A",
		Email:     "a@example.com",
		IP:        "203.0.113.7",
	})
	if !errors.Is(err, leads.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// A different IP is unaffected.
	_, err = svc.Submit(ctx, leads.Input{
		VariantID: variant.ID,
		Name:      "A",
		Email:     "a@example.com",
		IP:        "198.51.100.9",
	})
	if err != nil {
		t.Errorf("other IP should pass, got %v", err)
	}
}

// The stored-lead backstop caps submissions even when the in-memory limiter
// has no state, e.g. after a restart.
func TestSubmit_StoredBackstop(t *testing.T) {
	s := setupTestDB(t)
	svc, variant := setupService(t, s, allowAll{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(ctx, leads.Input{
			VariantID: variant.ID,
			Name:      "A",
			Email:     "a@example.com",
			IP:        "203.0.113.7",
		})
		if err != nil {
			t.Fatalf("submission %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Submit(ctx, leads.Input{
		VariantID: variant.ID,
		Name:      "A",
		Email:     "a@example.com",
		IP:        "203.0.113.7",
	})
	if !errors.Is(err, leads.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited from the stored backstop, got %v", err)
	}
}

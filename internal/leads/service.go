package leads

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/ratelimit"
	"github.com/launchforge/launchforge/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("too many submissions")
)

// Durable backstop behind the in-memory limiter: stored leads from one IP
// hash within this window cap submissions even across process restarts.
const (
	maxStoredPerIP = 5
	storedWindow   = 10 * time.Minute
)

// Service captures leads from landing-page forms and records the matching
// conversion event. The conversion write is best-effort: a captured lead is
// never lost because analytics misbehaved.
type Service struct {
	store     store.Store
	analytics *analytics.Service
	limiter   ratelimit.Limiter
	log       *logger.Logger
}

func NewService(s store.Store, a *analytics.Service, limiter ratelimit.Limiter, log *logger.Logger) *Service {
	return &Service{store: s, analytics: a, limiter: limiter, log: log}
}

// Input is one form submission. Honeypot carries the hidden field real
// visitors leave empty.
type Input struct {
	VariantID  string
	Name       string
	Email      string
	Phone      string
	Message    string
	Honeypot   string
	SessionKey string
	UTM        store.UTM
	Revenue    float64
	IP         string
	UserAgent  string
}

// Submit validates and stores a lead, then records a conversion for the
// variant. Bot submissions (filled honeypot) succeed silently with no lead.
func (s *Service) Submit(ctx context.Context, in Input) (*store.Lead, error) {
	if in.Honeypot != "" {
		s.log.Debug("honeypot tripped, dropping submission", "variant_id", in.VariantID)
		return nil, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 100 {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Message) > 2000 {
		return nil, fmt.Errorf("%w: message too long", ErrInvalidInput)
	}

	variant, err := s.store.GetVariant(ctx, in.VariantID)
	if err != nil {
		return nil, err
	}

	var ipHash string
	if in.IP != "" {
		ipHash = s.analytics.HashIP(in.IP)
		if !s.limiter.Allow(ipHash) {
			return nil, ErrRateLimited
		}
		n, err := s.store.LeadCountByIPHash(ctx, ipHash, time.Now().Add(-storedWindow))
		if err != nil {
			return nil, fmt.Errorf("failed to check recent submissions: %w", err)
		}
		if n >= maxStoredPerIP {
			return nil, ErrRateLimited
		}
	}

	lead := &store.Lead{
		ProjectID: variant.ProjectID,
		VariantID: variant.ID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		Message:   strings.TrimSpace(in.Message),
		IPHash:    ipHash,
		UserAgent: in.UserAgent,
		UTM:       in.UTM,
	}
	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	// Non-blocking: the visitor converted whether or not the event lands.
	if err := s.analytics.RecordConversion(ctx, analytics.ConversionParams{
		ProjectID:  variant.ProjectID,
		VariantID:  variant.ID,
		LeadID:     lead.ID,
		Revenue:    in.Revenue,
		UTM:        in.UTM,
		SessionKey: in.SessionKey,
		IP:         in.IP,
	}); err != nil {
		s.log.Error("conversion recording failed", "lead_id", lead.ID, "error", err)
	}

	return lead, nil
}

package store

import (
	"context"
	"time"
)

// Store defines the persistence operations the rest of the system uses.
// *SQLiteStore is the only implementation.
type Store interface {
	// Variant operations
	CreateVariant(ctx context.Context, projectID, pageJSON string) (*Variant, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	GetVariantBySlug(ctx context.Context, slug string) (*Variant, error)
	ListVariants(ctx context.Context, projectID string) ([]*Variant, error)
	PublishVariant(ctx context.Context, id, slug string) error
	CloneVariant(ctx context.Context, sourceID string) (*Variant, error)

	// Test operations
	CreateTest(ctx context.Context, projectID, controlID string, challengerIDs []string, weights map[string]int) (*Test, error)
	GetTest(ctx context.Context, id string) (*Test, error)
	ListTests(ctx context.Context, projectID string) ([]*Test, error)
	FindRunningTestByControl(ctx context.Context, projectID, controlID string) (*Test, error)
	StartTest(ctx context.Context, id string) error
	StopTest(ctx context.Context, id string) error
	PromoteWinner(ctx context.Context, testID, winnerID string) error

	// Assignment operations
	GetAssignment(ctx context.Context, testID, keyHash string) (*Assignment, error)
	PutAssignment(ctx context.Context, testID, keyHash, variantID string) (*Assignment, error)

	// Event operations
	InsertViewEvent(ctx context.Context, e *ViewEvent) error
	InsertConversionEvent(ctx context.Context, e *ConversionEvent) error
	ViewCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error)
	ConversionCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error)
	DailyCounts(ctx context.Context, projectID string, since time.Time) ([]DailyCount, error)
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)

	// Lead operations
	CreateLead(ctx context.Context, l *Lead) error
	ListLeads(ctx context.Context, projectID string) ([]*Lead, error)
	LeadCountByIPHash(ctx context.Context, ipHash string, since time.Time) (int, error)

	// Lifecycle
	Close() error
}

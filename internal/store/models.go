package store

import "time"

type VariantStatus string

const (
	VariantDraft     VariantStatus = "DRAFT"
	VariantPublished VariantStatus = "PUBLISHED"
	VariantArchived  VariantStatus = "ARCHIVED"
)

type TestStatus string

const (
	TestDraft    TestStatus = "DRAFT"
	TestRunning  TestStatus = "RUNNING"
	TestFinished TestStatus = "FINISHED"
	TestStopped  TestStatus = "STOPPED"
)

// Variant is one candidate version of a landing page. At most one PUBLISHED
// variant holds a given slug; a variant with no slug is not publicly
// addressable.
type Variant struct {
	ID        string
	ProjectID string
	Version   int
	Status    VariantStatus
	Slug      string // empty when not addressable
	PageJSON  string // opaque page content
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Test compares a control variant against one or more challengers. Weights
// map every participating variant ID to a positive integer used as its
// relative selection probability.
type Test struct {
	ID              string
	ProjectID       string
	ControlID       string
	ChallengerIDs   []string // decoded from JSON
	Weights         map[string]int
	Status          TestStatus
	StartedAt       *time.Time
	EndedAt         *time.Time
	WinnerVariantID string // empty until a winner is promoted
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VariantIDs returns control plus challengers, control first.
func (t *Test) VariantIDs() []string {
	ids := make([]string, 0, len(t.ChallengerIDs)+1)
	ids = append(ids, t.ControlID)
	ids = append(ids, t.ChallengerIDs...)
	return ids
}

// HasVariant reports whether id participates in the test.
func (t *Test) HasVariant(id string) bool {
	if id == t.ControlID {
		return true
	}
	for _, c := range t.ChallengerIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Assignment is the sticky (test, hashed session key) -> variant binding.
type Assignment struct {
	TestID    string
	KeyHash   string
	VariantID string
	CreatedAt time.Time
}

// UTM holds attribution fields as captured from the landing URL.
type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// ViewEvent is an immutable page-view fact. VariantID, hashes and session key
// may be empty when unknown.
type ViewEvent struct {
	ID         string
	ProjectID  string
	VariantID  string
	Slug       string
	Referrer   string
	UTM        UTM
	SessionKey string
	IPHash     string
	UAHash     string
	CreatedAt  time.Time
}

// ConversionEvent is an immutable conversion fact tied to a captured lead.
type ConversionEvent struct {
	ID         string
	ProjectID  string
	VariantID  string
	LeadID     string
	Revenue    float64
	UTM        UTM
	SessionKey string
	IPHash     string
	CreatedAt  time.Time
}

// Lead is a captured form submission.
type Lead struct {
	ID        string
	ProjectID string
	VariantID string
	Name      string
	Email     string
	Phone     string
	Message   string
	IPHash    string
	UserAgent string
	UTM       UTM
	CreatedAt time.Time
}

// DailyCount is one day's rollup of views and conversions.
type DailyCount struct {
	Date        string // YYYY-MM-DD, UTC
	Views       int
	Conversions int
}

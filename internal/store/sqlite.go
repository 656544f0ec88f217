package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS variants (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'DRAFT',
    slug TEXT,
    page_json TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_slug ON variants(slug) WHERE slug IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_project_version ON variants(project_id, version);
CREATE INDEX IF NOT EXISTS idx_variants_project ON variants(project_id);

CREATE TABLE IF NOT EXISTS ab_tests (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    control_variant_id TEXT NOT NULL,
    challenger_ids TEXT NOT NULL,
    weights TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'DRAFT',
    started_at INTEGER,
    ended_at INTEGER,
    winner_variant_id TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (control_variant_id) REFERENCES variants(id)
);

CREATE INDEX IF NOT EXISTS idx_tests_project_status ON ab_tests(project_id, status);

CREATE TABLE IF NOT EXISTS assignments (
    test_id TEXT NOT NULL,
    key_hash TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    PRIMARY KEY (test_id, key_hash)
);

CREATE TABLE IF NOT EXISTS view_events (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    variant_id TEXT,
    slug TEXT NOT NULL DEFAULT '',
    referrer TEXT,
    utm_json TEXT,
    session_key TEXT,
    ip_hash TEXT,
    ua_hash TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_view_events_scope ON view_events(project_id, variant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_view_events_created ON view_events(created_at);

CREATE TABLE IF NOT EXISTS conversion_events (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    variant_id TEXT,
    lead_id TEXT NOT NULL,
    revenue REAL NOT NULL DEFAULT 0,
    utm_json TEXT,
    session_key TEXT,
    ip_hash TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_conversion_events_scope ON conversion_events(project_id, variant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_conversion_events_created ON conversion_events(created_at);

CREATE TABLE IF NOT EXISTS leads (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT,
    message TEXT,
    ip_hash TEXT,
    user_agent TEXT,
    utm_json TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_leads_project ON leads(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_ip ON leads(ip_hash, created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullableTime(unix sql.NullInt64) *time.Time {
	if !unix.Valid {
		return nil
	}
	t := time.Unix(unix.Int64, 0)
	return &t
}

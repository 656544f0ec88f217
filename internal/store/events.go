package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func marshalUTM(u UTM) (string, error) {
	if u == (UTM{}) {
		return "", nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to marshal utm: %w", err)
	}
	return string(b), nil
}

func (s *SQLiteStore) InsertViewEvent(ctx context.Context, e *ViewEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	utmJSON, err := marshalUTM(e.UTM)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO view_events (id, project_id, variant_id, slug, referrer, utm_json, session_key, ip_hash, ua_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, nullableString(e.VariantID), e.Slug, nullableString(e.Referrer),
		nullableString(utmJSON), nullableString(e.SessionKey), nullableString(e.IPHash),
		nullableString(e.UAHash), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert view event: %w", err)
	}

	e.CreatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) InsertConversionEvent(ctx context.Context, e *ConversionEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	utmJSON, err := marshalUTM(e.UTM)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversion_events (id, project_id, variant_id, lead_id, revenue, utm_json, session_key, ip_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, nullableString(e.VariantID), e.LeadID, e.Revenue,
		nullableString(utmJSON), nullableString(e.SessionKey), nullableString(e.IPHash), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion event: %w", err)
	}

	e.CreatedAt = time.Unix(now, 0)
	return nil
}

// ViewCount counts view events for one variant within a project at or after
// since.
func (s *SQLiteStore) ViewCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM view_events
		 WHERE project_id = ? AND variant_id = ? AND created_at >= ?`,
		projectID, variantID, since.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return n, nil
}

// ConversionCount counts conversion events for one variant within a project
// at or after since.
func (s *SQLiteStore) ConversionCount(ctx context.Context, projectID, variantID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversion_events
		 WHERE project_id = ? AND variant_id = ? AND created_at >= ?`,
		projectID, variantID, since.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return n, nil
}

// DailyCounts returns per-UTC-day view and conversion totals for a project,
// zero-filled is the caller's job.
func (s *SQLiteStore) DailyCounts(ctx context.Context, projectID string, since time.Time) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, SUM(views), SUM(conversions) FROM (
			SELECT date(created_at, 'unixepoch') AS day, COUNT(*) AS views, 0 AS conversions
			FROM view_events WHERE project_id = ? AND created_at >= ? GROUP BY day
			UNION ALL
			SELECT date(created_at, 'unixepoch') AS day, 0 AS views, COUNT(*) AS conversions
			FROM conversion_events WHERE project_id = ? AND created_at >= ? GROUP BY day
		) GROUP BY day ORDER BY day ASC`,
		projectID, since.Unix(), projectID, since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Date, &c.Views, &c.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// PruneEvents deletes view and conversion events created before cutoff and
// returns how many rows went away.
func (s *SQLiteStore) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM view_events WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune view events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	total += n

	result, err = s.db.ExecContext(ctx,
		`DELETE FROM conversion_events WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return total, fmt.Errorf("failed to prune conversion events: %w", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return total, fmt.Errorf("failed to get rows affected: %w", err)
	}
	total += n

	return total, nil
}

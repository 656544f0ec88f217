package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateLead(ctx context.Context, l *Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	utmJSON, err := marshalUTM(l.UTM)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, project_id, variant_id, name, email, phone, message, ip_hash, user_agent, utm_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ProjectID, l.VariantID, l.Name, l.Email, nullableString(l.Phone),
		nullableString(l.Message), nullableString(l.IPHash), nullableString(l.UserAgent),
		nullableString(utmJSON), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	l.CreatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, projectID string) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, variant_id, name, email, phone, message, ip_hash, user_agent, utm_json, created_at
		 FROM leads WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		var l Lead
		var phone, message, ipHash, userAgent, utmJSON sql.NullString
		var createdAt int64

		err := rows.Scan(&l.ID, &l.ProjectID, &l.VariantID, &l.Name, &l.Email,
			&phone, &message, &ipHash, &userAgent, &utmJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}

		l.Phone = phone.String
		l.Message = message.String
		l.IPHash = ipHash.String
		l.UserAgent = userAgent.String
		if utmJSON.Valid && utmJSON.String != "" {
			if err := json.Unmarshal([]byte(utmJSON.String), &l.UTM); err != nil {
				return nil, fmt.Errorf("failed to unmarshal lead utm: %w", err)
			}
		}
		l.CreatedAt = time.Unix(createdAt, 0)

		leads = append(leads, &l)
	}
	return leads, rows.Err()
}

// LeadCountByIPHash counts leads captured from one IP hash at or after since.
// The lead path's spam limiter consults this across restarts.
func (s *SQLiteStore) LeadCountByIPHash(ctx context.Context, ipHash string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE ip_hash = ? AND created_at >= ?`,
		ipHash, since.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads by ip hash: %w", err)
	}
	return n, nil
}

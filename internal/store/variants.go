package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateVariant(ctx context.Context, projectID, pageJSON string) (*Variant, error) {
	if pageJSON == "" {
		pageJSON = "{}"
	}

	v := &Variant{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Status:    VariantDraft,
		PageJSON:  pageJSON,
	}

	// The next project-scoped version is computed inside the insert so two
	// concurrent creates can't both read the same MAX; the unique index on
	// (project_id, version) backstops it.
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variants (id, project_id, version, status, slug, page_json, created_at, updated_at)
		 SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, NULL, ?, ?, ?
		 FROM variants WHERE project_id = ?`,
		v.ID, v.ProjectID, string(v.Status), v.PageJSON, now, now, v.ProjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert variant: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT version FROM variants WHERE id = ?`, v.ID,
	).Scan(&v.Version); err != nil {
		return nil, fmt.Errorf("failed to read back version: %w", err)
	}

	v.CreatedAt = time.Unix(now, 0)
	v.UpdatedAt = time.Unix(now, 0)
	return v, nil
}

const variantColumns = `id, project_id, version, status, slug, page_json, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (*Variant, error) {
	var v Variant
	var slug sql.NullString
	var status string
	var createdAt, updatedAt int64

	err := row.Scan(&v.ID, &v.ProjectID, &v.Version, &status, &slug, &v.PageJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}

	v.Status = VariantStatus(status)
	v.Slug = slug.String
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)
	return &v, nil
}

func (s *SQLiteStore) GetVariant(ctx context.Context, id string) (*Variant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = ?`, id)
	return scanVariant(row)
}

func (s *SQLiteStore) GetVariantBySlug(ctx context.Context, slug string) (*Variant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE slug = ?`, slug)
	return scanVariant(row)
}

func (s *SQLiteStore) ListVariants(ctx context.Context, projectID string) ([]*Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE project_id = ? ORDER BY version ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// PublishVariant makes a draft variant publicly addressable under slug.
// Fails with ErrInvalidState if the variant is not a draft, and with the
// driver's constraint error if the slug is already taken.
func (s *SQLiteStore) PublishVariant(ctx context.Context, id, slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug required to publish", ErrInvalidState)
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET status = ?, slug = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(VariantPublished), slug, now, id, string(VariantDraft),
	)
	if err != nil {
		return fmt.Errorf("failed to publish variant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetVariant(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: variant is not a draft", ErrInvalidState)
	}
	return nil
}

// CloneVariant copies a variant's content into a new draft at the next
// project version. Used for the challenger iteration loop.
func (s *SQLiteStore) CloneVariant(ctx context.Context, sourceID string) (*Variant, error) {
	source, err := s.GetVariant(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return s.CreateVariant(ctx, source.ProjectID, source.PageJSON)
}

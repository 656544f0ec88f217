package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *SQLiteStore) GetAssignment(ctx context.Context, testID, keyHash string) (*Assignment, error) {
	var a Assignment
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT test_id, key_hash, variant_id, created_at
		 FROM assignments WHERE test_id = ? AND key_hash = ?`,
		testID, keyHash,
	).Scan(&a.TestID, &a.KeyHash, &a.VariantID, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	a.CreatedAt = time.Unix(createdAt, 0)
	return &a, nil
}

// PutAssignment records variantID for (testID, keyHash) and returns whatever
// binding is durable afterwards. The primary key makes the insert a no-op when
// a concurrent request got there first; the read-back returns the winner's
// value so a losing writer never surfaces its own draw.
func (s *SQLiteStore) PutAssignment(ctx context.Context, testID, keyHash, variantID string) (*Assignment, error) {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (test_id, key_hash, variant_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		testID, keyHash, variantID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	return s.GetAssignment(ctx, testID, keyHash)
}

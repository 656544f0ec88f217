package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateTest(ctx context.Context, projectID, controlID string, challengerIDs []string, weights map[string]int) (*Test, error) {
	challengersJSON, err := json.Marshal(challengerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challengers: %w", err)
	}
	weightsJSON, err := json.Marshal(weights)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weights: %w", err)
	}

	t := &Test{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		ControlID:     controlID,
		ChallengerIDs: challengerIDs,
		Weights:       weights,
		Status:        TestDraft,
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ab_tests (id, project_id, control_variant_id, challenger_ids, weights, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.ControlID, string(challengersJSON), string(weightsJSON), string(t.Status), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert test: %w", err)
	}

	t.CreatedAt = time.Unix(now, 0)
	t.UpdatedAt = time.Unix(now, 0)
	return t, nil
}

const testColumns = `id, project_id, control_variant_id, challenger_ids, weights, status, started_at, ended_at, winner_variant_id, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*Test, error) {
	var t Test
	var challengersJSON, weightsJSON, status string
	var startedAt, endedAt sql.NullInt64
	var winner sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&t.ID, &t.ProjectID, &t.ControlID, &challengersJSON, &weightsJSON,
		&status, &startedAt, &endedAt, &winner, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan test: %w", err)
	}

	if err := json.Unmarshal([]byte(challengersJSON), &t.ChallengerIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challengers: %w", err)
	}
	if err := json.Unmarshal([]byte(weightsJSON), &t.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	t.Status = TestStatus(status)
	t.StartedAt = nullableTime(startedAt)
	t.EndedAt = nullableTime(endedAt)
	t.WinnerVariantID = winner.String
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

func (s *SQLiteStore) GetTest(ctx context.Context, id string) (*Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM ab_tests WHERE id = ?`, id)
	return scanTest(row)
}

func (s *SQLiteStore) ListTests(ctx context.Context, projectID string) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+testColumns+` FROM ab_tests WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// FindRunningTestByControl returns the running test whose control variant is
// controlID, or ErrNotFound. The public page resolver uses this to decide
// whether an inbound slug hit participates in an experiment.
func (s *SQLiteStore) FindRunningTestByControl(ctx context.Context, projectID, controlID string) (*Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM ab_tests
		 WHERE project_id = ? AND control_variant_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		projectID, controlID, string(TestRunning))
	return scanTest(row)
}

// transitionTest flips a test between lifecycle states with a guarded update.
// Returns ErrNotFound if the test does not exist and ErrInvalidState if it
// exists but is not in the expected state.
func (s *SQLiteStore) transitionTest(ctx context.Context, id string, from, to TestStatus, setStarted, setEnded bool) error {
	now := time.Now().Unix()

	query := `UPDATE ab_tests SET status = ?, updated_at = ?`
	args := []any{string(to), now}
	if setStarted {
		query += `, started_at = ?`
		args = append(args, now)
	}
	if setEnded {
		query += `, ended_at = ?`
		args = append(args, now)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update test state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		t, err := s.GetTest(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: test is %s, expected %s", ErrInvalidState, t.Status, from)
	}
	return nil
}

func (s *SQLiteStore) StartTest(ctx context.Context, id string) error {
	return s.transitionTest(ctx, id, TestDraft, TestRunning, true, false)
}

func (s *SQLiteStore) StopTest(ctx context.Context, id string) error {
	return s.transitionTest(ctx, id, TestRunning, TestStopped, false, true)
}

// PromoteWinner finishes a running test and, when the winner is a challenger,
// relocates the control's slug to the winner. The test row flip and the slug
// swap commit or roll back together: a half-completed swap would leave the
// slug unclaimed or claimed twice.
func (s *SQLiteStore) PromoteWinner(ctx context.Context, testID, winnerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM ab_tests WHERE id = ?`, testID)
	t, err := scanTest(row)
	if err != nil {
		return err
	}
	if t.Status != TestRunning {
		return fmt.Errorf("%w: test is %s, expected %s", ErrInvalidState, t.Status, TestRunning)
	}
	if !t.HasVariant(winnerID) {
		return fmt.Errorf("%w: variant %s is not part of the test", ErrInvalidState, winnerID)
	}

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`UPDATE ab_tests SET status = ?, winner_variant_id = ?, ended_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(TestFinished), winnerID, now, now, testID, string(TestRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to finish test: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost a race with a concurrent transition.
		return fmt.Errorf("%w: test is no longer running", ErrInvalidState)
	}

	if winnerID != t.ControlID {
		var slug sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT slug FROM variants WHERE id = ?`, t.ControlID).Scan(&slug)
		if err == sql.ErrNoRows {
			return fmt.Errorf("control variant %s: %w", t.ControlID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read control slug: %w", err)
		}

		// A control without a slug has nothing to hand over.
		if slug.Valid && slug.String != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE variants SET slug = NULL, status = ?, updated_at = ? WHERE id = ?`,
				string(VariantArchived), now, t.ControlID,
			); err != nil {
				return fmt.Errorf("failed to archive control: %w", err)
			}

			result, err := tx.ExecContext(ctx,
				`UPDATE variants SET slug = ?, status = ?, updated_at = ? WHERE id = ?`,
				slug.String, string(VariantPublished), now, winnerID,
			)
			if err != nil {
				return fmt.Errorf("failed to publish winner: %w", err)
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return fmt.Errorf("winner variant %s: %w", winnerID, ErrNotFound)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promotion: %w", err)
	}
	return nil
}

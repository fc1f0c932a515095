package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// sqlStore implements Store over database/sql. SQLiteStore and MySQLStore
// differ only in schema and upsert syntax; both drivers use ? placeholders.
//
// Timestamps are stored as Unix nanoseconds so neither driver needs time
// parsing configured.
type sqlStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	upsertWorkflow string
	upsertRun      string
}

func (s *sqlStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveWorkflow implements Store.
func (s *sqlStore) SaveWorkflow(ctx context.Context, rec WorkflowRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.upsertWorkflow,
		rec.ID, rec.Name, rec.Description, string(rec.Document),
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

// LoadWorkflow implements Store.
func (s *sqlStore) LoadWorkflow(ctx context.Context, id string) (WorkflowRecord, error) {
	if err := s.checkOpen(); err != nil {
		return WorkflowRecord{}, err
	}

	query := `
		SELECT id, name, description, document, created_at, updated_at
		FROM workflows
		WHERE id = ?
	`
	var (
		rec              WorkflowRecord
		doc              string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.Description, &doc, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkflowRecord{}, ErrNotFound
	}
	if err != nil {
		return WorkflowRecord{}, fmt.Errorf("failed to load workflow: %w", err)
	}
	rec.Document = []byte(doc)
	rec.CreatedAt = fromNanos(created)
	rec.UpdatedAt = fromNanos(updated)
	return rec, nil
}

// ListWorkflows implements Store.
func (s *sqlStore) ListWorkflows(ctx context.Context) ([]WorkflowRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM workflows
		ORDER BY updated_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	out := []WorkflowRecord{}
	for rows.Next() {
		var (
			rec              WorkflowRecord
			created, updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		rec.CreatedAt = fromNanos(created)
		rec.UpdatedAt = fromNanos(updated)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return out, nil
}

// DeleteWorkflow implements Store.
func (s *sqlStore) DeleteWorkflow(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE workflow_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveRun implements Store.
func (s *sqlStore) SaveRun(ctx context.Context, rec RunRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.upsertRun,
		rec.ID, rec.WorkflowID, rec.Success, string(rec.Result), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LoadRun implements Store.
func (s *sqlStore) LoadRun(ctx context.Context, id string) (RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return RunRecord{}, err
	}

	query := `
		SELECT id, workflow_id, success, result, created_at
		FROM runs
		WHERE id = ?
	`
	var (
		rec     RunRecord
		result  string
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.WorkflowID, &rec.Success, &result, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run: %w", err)
	}
	rec.Result = []byte(result)
	rec.CreatedAt = fromNanos(created)
	return rec, nil
}

// ListRuns implements Store.
func (s *sqlStore) ListRuns(ctx context.Context, workflowID string) ([]RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, workflow_id, success, created_at
		FROM runs
		WHERE workflow_id = ?
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunRecord{}
	for rows.Next() {
		var (
			rec     RunRecord
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.WorkflowID, &rec.Success, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.CreatedAt = fromNanos(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

// Close implements Store.
func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Double-close is a no-op
	}
	s.closed = true
	return s.db.Close()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

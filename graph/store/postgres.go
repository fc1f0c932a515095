package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    document    JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    workflow_id TEXT NOT NULL DEFAULT '',
    success     BOOLEAN NOT NULL,
    result      JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflows_updated_at ON workflows(updated_at);
CREATE INDEX IF NOT EXISTS idx_runs_workflow_id     ON runs(workflow_id, created_at);
`

// PGStore implements Store using PostgreSQL via pgx.
//
// Documents and results are stored as JSONB, so loaded blobs are
// equivalent to, not byte-identical with, the saved ones.
type PGStore struct {
	db     *pgxpool.Pool
	owned  bool
	mu     sync.RWMutex
	closed bool
}

// NewPGStore creates a PGStore backed by an existing pool. The caller keeps
// ownership of the pool; Close does not close it.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// OpenPGStore connects to dsn, creates the schema and returns a store that
// owns its pool.
func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &PGStore{db: pool, owned: true}
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// CreateSchema creates the workflows and runs tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, pgSchemaSQL)
	return err
}

// DropSchema drops the workflows and runs tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS runs, workflows CASCADE;`)
	return err
}

func (s *PGStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveWorkflow implements Store.
func (s *PGStore) SaveWorkflow(ctx context.Context, rec WorkflowRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO workflows (id, name, description, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Name, rec.Description, rec.Document, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

// LoadWorkflow implements Store.
func (s *PGStore) LoadWorkflow(ctx context.Context, id string) (WorkflowRecord, error) {
	if err := s.checkOpen(); err != nil {
		return WorkflowRecord{}, err
	}

	var rec WorkflowRecord
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, document, created_at, updated_at
		FROM workflows WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Document, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkflowRecord{}, ErrNotFound
	}
	if err != nil {
		return WorkflowRecord{}, fmt.Errorf("failed to load workflow: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

// ListWorkflows implements Store.
func (s *PGStore) ListWorkflows(ctx context.Context) ([]WorkflowRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM workflows
		ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	out := []WorkflowRecord{}
	for rows.Next() {
		var rec WorkflowRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return out, nil
}

// DeleteWorkflow implements Store.
func (s *PGStore) DeleteWorkflow(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM runs WHERE workflow_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveRun implements Store.
func (s *PGStore) SaveRun(ctx context.Context, rec RunRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO runs (id, workflow_id, success, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			success = EXCLUDED.success,
			result = EXCLUDED.result,
			created_at = EXCLUDED.created_at`,
		rec.ID, rec.WorkflowID, rec.Success, rec.Result, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LoadRun implements Store.
func (s *PGStore) LoadRun(ctx context.Context, id string) (RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return RunRecord{}, err
	}

	var rec RunRecord
	err := s.db.QueryRow(ctx, `
		SELECT id, workflow_id, success, result, created_at
		FROM runs WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.WorkflowID, &rec.Success, &rec.Result, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// ListRuns implements Store.
func (s *PGStore) ListRuns(ctx context.Context, workflowID string) ([]RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, workflow_id, success, created_at
		FROM runs
		WHERE workflow_id = $1
		ORDER BY created_at, id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunRecord{}
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.WorkflowID, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

// Close implements Store. The pool is closed only when the store opened it.
func (s *PGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		s.db.Close()
	}
	return nil
}

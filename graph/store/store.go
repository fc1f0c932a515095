// Package store persists workflow documents and simulation results.
//
// Documents and results are kept as opaque JSON blobs keyed by id: the
// store never interprets a graph. PutDocument, GetDocument, PutRun and
// GetRun convert between blobs and their typed forms.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested workflow or run id does not exist.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store is closed")

// Store provides persistence for workflow documents and run results.
//
// Implementations:
//   - MemStore: in-process maps, for tests and the default server
//   - SQLiteStore: single-file database, WAL mode
//   - MySQLStore: MySQL/MariaDB with connection pooling
//   - PGStore: PostgreSQL via pgxpool
//
// All implementations are safe for concurrent use.
type Store interface {
	// SaveWorkflow inserts rec or replaces the workflow with the same id.
	// On replacement the original CreatedAt is kept.
	SaveWorkflow(ctx context.Context, rec WorkflowRecord) error

	// LoadWorkflow returns the workflow with the given id, or ErrNotFound.
	LoadWorkflow(ctx context.Context, id string) (WorkflowRecord, error)

	// ListWorkflows returns every workflow, most recently updated first.
	// Document is left nil in listed records.
	ListWorkflows(ctx context.Context) ([]WorkflowRecord, error)

	// DeleteWorkflow removes a workflow and every run recorded against it.
	// Returns ErrNotFound when the id does not exist.
	DeleteWorkflow(ctx context.Context, id string) error

	// SaveRun records a run result. Run ids are unique; saving the same id
	// twice replaces the earlier record.
	SaveRun(ctx context.Context, rec RunRecord) error

	// LoadRun returns the run with the given id, or ErrNotFound.
	LoadRun(ctx context.Context, id string) (RunRecord, error)

	// ListRuns returns the runs recorded for workflowID, oldest first.
	// Result is left nil in listed records.
	ListRuns(ctx context.Context, workflowID string) ([]RunRecord, error)

	// Close releases resources. Closing twice is a no-op.
	Close() error
}

// WorkflowRecord is a stored workflow document.
type WorkflowRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Document    []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RunRecord is a stored simulation result. WorkflowID is empty for runs of
// graphs that were never saved.
type RunRecord struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId,omitempty"`
	Success    bool      `json:"success"`
	Result     []byte    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

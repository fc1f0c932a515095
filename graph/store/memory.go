package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for tests and for servers that do not need persistence across
// restarts. Records are copied on the way in and out.
type MemStore struct {
	mu        sync.RWMutex
	closed    bool
	workflows map[string]WorkflowRecord
	runs      map[string]RunRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		workflows: make(map[string]WorkflowRecord),
		runs:      make(map[string]RunRecord),
	}
}

// SaveWorkflow implements Store.
func (m *MemStore) SaveWorkflow(_ context.Context, rec WorkflowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if existing, ok := m.workflows[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	rec.Document = cloneBytes(rec.Document)
	m.workflows[rec.ID] = rec
	return nil
}

// LoadWorkflow implements Store.
func (m *MemStore) LoadWorkflow(_ context.Context, id string) (WorkflowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return WorkflowRecord{}, ErrClosed
	}

	rec, ok := m.workflows[id]
	if !ok {
		return WorkflowRecord{}, ErrNotFound
	}
	rec.Document = cloneBytes(rec.Document)
	return rec, nil
}

// ListWorkflows implements Store.
func (m *MemStore) ListWorkflows(_ context.Context) ([]WorkflowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := make([]WorkflowRecord, 0, len(m.workflows))
	for _, rec := range m.workflows {
		rec.Document = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteWorkflow implements Store.
func (m *MemStore) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if _, ok := m.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(m.workflows, id)
	for runID, run := range m.runs {
		if run.WorkflowID == id {
			delete(m.runs, runID)
		}
	}
	return nil
}

// SaveRun implements Store.
func (m *MemStore) SaveRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	rec.Result = cloneBytes(rec.Result)
	m.runs[rec.ID] = rec
	return nil
}

// LoadRun implements Store.
func (m *MemStore) LoadRun(_ context.Context, id string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return RunRecord{}, ErrClosed
	}

	rec, ok := m.runs[id]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	rec.Result = cloneBytes(rec.Result)
	return rec, nil
}

// ListRuns implements Store.
func (m *MemStore) ListRuns(_ context.Context, workflowID string) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := []RunRecord{}
	for _, rec := range m.runs {
		if rec.WorkflowID == workflowID {
			rec.Result = nil
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return newTestSQLiteStore(t)
	})
}

// TestSQLiteStore_Persistence verifies data survives reopening the file.
func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flowsim.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := WorkflowRecord{ID: "w", Name: "kept", Document: []byte(`{}`), CreatedAt: baseTime, UpdatedAt: baseTime}
	if err := s.SaveWorkflow(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.LoadWorkflow(ctx, "w")
	if err != nil {
		t.Fatalf("LoadWorkflow after reopen: %v", err)
	}
	if got.Name != "kept" || reopened.Path() != path {
		t.Errorf("unexpected record %+v", got)
	}
}

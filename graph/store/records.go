package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/codec"
)

// now is the clock used to stamp records.
var now = func() time.Time { return time.Now().UTC() }

// PutDocument saves doc under id, generating a new id when id is empty.
// Name and description are taken from the document metadata.
func PutDocument(ctx context.Context, s Store, id string, doc codec.Document) (WorkflowRecord, error) {
	if id == "" {
		id = uuid.NewString()
	}
	data, err := codec.Encode(doc)
	if err != nil {
		return WorkflowRecord{}, err
	}

	ts := now()
	rec := WorkflowRecord{
		ID:          id,
		Name:        doc.Metadata.Name(),
		Description: doc.Metadata.Description(),
		Document:    data,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.SaveWorkflow(ctx, rec); err != nil {
		return WorkflowRecord{}, err
	}
	return rec, nil
}

// GetDocument loads and decodes the workflow document stored under id.
func GetDocument(ctx context.Context, s Store, id string) (codec.Document, error) {
	rec, err := s.LoadWorkflow(ctx, id)
	if err != nil {
		return codec.Document{}, err
	}
	return codec.Deserialize(rec.Document)
}

// PutRun records result against workflowID (which may be empty).
func PutRun(ctx context.Context, s Store, workflowID string, result graph.RunResult) (RunRecord, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to encode run result: %w", err)
	}
	rec := RunRecord{
		ID:         result.RunID,
		WorkflowID: workflowID,
		Success:    result.Success,
		Result:     data,
		CreatedAt:  now(),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.SaveRun(ctx, rec); err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// GetRun loads and decodes the run result stored under id.
func GetRun(ctx context.Context, s Store, id string) (graph.RunResult, error) {
	rec, err := s.LoadRun(ctx, id)
	if err != nil {
		return graph.RunResult{}, err
	}
	var result graph.RunResult
	if err := json.Unmarshal(rec.Result, &result); err != nil {
		return graph.RunResult{}, fmt.Errorf("failed to decode run result: %w", err)
	}
	return result, nil
}

// Open creates the Store selected by driver: "memory", "sqlite", "mysql"
// or "postgres". dsn is the file path for sqlite and the connection string
// for the network databases.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemStore(), nil
	case "sqlite":
		if dsn == "" {
			dsn = "flowsim.db"
		}
		return NewSQLiteStore(dsn)
	case "mysql":
		return NewMySQLStore(dsn)
	case "postgres":
		return OpenPGStore(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

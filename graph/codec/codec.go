// Package codec converts workflow graphs to and from the portable JSON
// document format.
//
// A document wraps the node and edge lists with a version tag, a creation
// timestamp and free-form metadata:
//
//	{
//	  "version": "1.0.0",
//	  "createdAt": "2025-01-02T15:04:05.000Z",
//	  "metadata": {"name": "Onboarding", "description": ""},
//	  "nodes": [{"id": "start-1", "type": "start", "position": {"x": 0, "y": 0}, "data": {...}}],
//	  "edges": [{"id": "e1", "source": "start-1", "target": "task-1"}]
//	}
//
// Import performs no structural validation; call graph.Validate afterwards.
package codec

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dshills/flowsim/graph"
)

// Version is the document format version written by Serialize.
const Version = "1.0.0"

// Metadata defaults applied by Serialize.
const (
	DefaultName        = "Untitled Workflow"
	DefaultDescription = ""
)

// ErrInvalidFormat indicates that a document is missing its nodes or edges.
var ErrInvalidFormat = errors.New("invalid workflow format: missing nodes or edges")

// Metadata is the free-form metadata block of a document. "name" and
// "description" are always present in serialized documents.
type Metadata map[string]any

// Name returns the workflow name.
func (m Metadata) Name() string {
	s, _ := m["name"].(string)
	return s
}

// Description returns the workflow description.
func (m Metadata) Description() string {
	s, _ := m["description"].(string)
	return s
}

// Document is the portable form of a workflow.
type Document struct {
	Version   string       `json:"version"`
	CreatedAt string       `json:"createdAt"`
	Metadata  Metadata     `json:"metadata"`
	Nodes     []graph.Node `json:"nodes"`
	Edges     []graph.Edge `json:"edges"`
}

// Snapshot returns the graph held by the document.
func (d Document) Snapshot() graph.Snapshot {
	return graph.Snapshot{Nodes: d.Nodes, Edges: d.Edges}.Clone()
}

// Serialize wraps nodes and edges in a document stamped with the current
// time. Caller metadata is copied in; name and description default to
// DefaultName and DefaultDescription when absent or empty.
func Serialize(nodes []graph.Node, edges []graph.Edge, meta Metadata) Document {
	return serializeAt(nodes, edges, meta, time.Now())
}

func serializeAt(nodes []graph.Node, edges []graph.Edge, meta Metadata, now time.Time) Document {
	m := Metadata{"name": DefaultName, "description": DefaultDescription}
	for k, v := range meta {
		m[k] = v
	}
	if m.Name() == "" {
		m["name"] = DefaultName
	}
	if _, ok := m["description"].(string); !ok {
		m["description"] = DefaultDescription
	}

	snap := graph.Snapshot{Nodes: nodes, Edges: edges}.Clone()
	return Document{
		Version:   Version,
		CreatedAt: now.UTC().Format(graph.TimestampFormat),
		Metadata:  m,
		Nodes:     snap.Nodes,
		Edges:     snap.Edges,
	}
}

// Marshal serializes nodes and edges and encodes the document as indented
// JSON.
func Marshal(nodes []graph.Node, edges []graph.Edge, meta Metadata) ([]byte, error) {
	return Encode(Serialize(nodes, edges, meta))
}

// Encode writes doc as indented JSON.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	return data, nil
}

// rawDocument distinguishes absent or null nodes/edges from empty lists.
type rawDocument struct {
	Version   string        `json:"version"`
	CreatedAt string        `json:"createdAt"`
	Metadata  Metadata      `json:"metadata"`
	Nodes     *[]graph.Node `json:"nodes"`
	Edges     *[]graph.Edge `json:"edges"`
}

// Deserialize parses a document. It fails when the input is not JSON or
// when nodes or edges is absent or null; every error is prefixed with
// "failed to parse workflow:". Fields are carried through unchanged.
func Deserialize(data []byte) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if raw.Nodes == nil || raw.Edges == nil {
		return Document{}, fmt.Errorf("failed to parse workflow: %w", ErrInvalidFormat)
	}

	meta := raw.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	return Document{
		Version:   raw.Version,
		CreatedAt: raw.CreatedAt,
		Metadata:  meta,
		Nodes:     *raw.Nodes,
		Edges:     *raw.Edges,
	}, nil
}

// Import parses data and, only when parsing succeeds, replaces the graph
// held by w. On error w is left untouched.
func Import(w *graph.Workflow, data []byte) (Document, error) {
	doc, err := Deserialize(data)
	if err != nil {
		return Document{}, err
	}
	w.Load(doc.Snapshot())
	return doc, nil
}

// Export serializes the current graph of w.
func Export(w *graph.Workflow, meta Metadata) ([]byte, error) {
	s := w.Snapshot()
	return Marshal(s.Nodes, s.Edges, meta)
}

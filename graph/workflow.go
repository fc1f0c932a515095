package graph

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// GridSize is the canvas grid that node positions snap to.
const GridSize = 20

// Workflow is an editable workflow graph with undo/redo history.
//
// Structural mutations (AddNode, DeleteNode, AddEdge, DeleteEdge) record a
// snapshot in the history; data edits and moves do not. Each mutation is
// atomic with respect to other Workflow methods. Validator, resolver and
// runner never hold a Workflow; pass them Snapshot() instead.
type Workflow struct {
	mu      sync.RWMutex
	nodes   []Node
	edges   []Edge
	history *History
	newID   func(prefix string) string
}

// WorkflowOption configures a Workflow.
type WorkflowOption func(*Workflow)

// WithHistoryDepth sets the number of snapshots kept for undo.
func WithHistoryDepth(depth int) WorkflowOption {
	return func(w *Workflow) {
		w.history = NewHistory(depth, Snapshot{})
	}
}

// WithIDGenerator overrides how node and edge ids are generated. gen
// receives the id prefix ("task", "edge", ...).
func WithIDGenerator(gen func(prefix string) string) WorkflowOption {
	return func(w *Workflow) {
		w.newID = gen
	}
}

// NewWorkflow creates an empty workflow.
func NewWorkflow(opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		nodes:   []Node{},
		edges:   []Edge{},
		history: NewHistory(DefaultHistoryDepth, Snapshot{}),
		newID:   randomID,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// randomID returns prefix followed by eight hex characters.
func randomID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// SnapToGrid rounds a position to the nearest GridSize multiple.
func SnapToGrid(p Position) Position {
	return Position{
		X: math.Round(p.X/GridSize) * GridSize,
		Y: math.Round(p.Y/GridSize) * GridSize,
	}
}

// Snapshot returns a deep copy of the current nodes and edges.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	return Snapshot{Nodes: w.nodes, Edges: w.edges}.Clone()
}

// Nodes returns a copy of the node list.
func (w *Workflow) Nodes() []Node {
	return w.Snapshot().Nodes
}

// Edges returns a copy of the edge list.
func (w *Workflow) Edges() []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneEdges(w.edges)
}

// Validate runs the structural validator over the current graph.
func (w *Workflow) Validate() Result {
	s := w.Snapshot()
	return Validate(s.Nodes, s.Edges)
}

// AddNode appends a node of type t with default data at pos, snapped to the
// grid.
func (w *Workflow) AddNode(t NodeType, pos Position) (Node, error) {
	data, err := DefaultData(t)
	if err != nil {
		return Node{}, &WorkflowError{Message: err.Error(), Code: "UNKNOWN_NODE_TYPE"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	node := Node{
		ID:       w.newID(string(t)),
		Type:     t,
		Position: SnapToGrid(pos),
		Data:     data,
	}
	w.nodes = append(w.nodes, node)
	w.history.Push(w.snapshotLocked())
	return node.Clone(), nil
}

// NodeUpdate carries the fields UpdateNode changes. Nil fields are left
// unchanged; Data is merged like UpdateNodeData.
type NodeUpdate struct {
	Position *Position
	Data     NodeData
}

// UpdateNode sets the position of node id and merges Data into its data.
// It does not record history.
func (w *Workflow) UpdateNode(id string, u NodeUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("update node %q: %w", id, ErrNodeNotFound)
	}
	if u.Position != nil {
		w.nodes[i].Position = *u.Position
	}
	if u.Data != nil {
		w.nodes[i].Data = mergeData(w.nodes[i].Data, u.Data)
	}
	return nil
}

// UpdateNodeData merges updates into the data of node id. Each top-level key
// in updates replaces the existing value, including empty values such as
// "" or an empty parameters map; keys absent from updates are kept. It does
// not record history.
func (w *Workflow) UpdateNodeData(id string, updates NodeData) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("update node data %q: %w", id, ErrNodeNotFound)
	}
	w.nodes[i].Data = mergeData(w.nodes[i].Data, updates)
	return nil
}

// mergeData returns a copy of base with the top-level keys of updates
// replacing its own.
func mergeData(base, updates NodeData) NodeData {
	merged := base.Clone()
	if merged == nil {
		merged = make(NodeData, len(updates))
	}
	for k, v := range updates {
		merged[k] = cloneValue(v)
	}
	return merged
}

// MoveNode sets the position of node id, snapped to the grid. It does not
// record history.
func (w *Workflow) MoveNode(id string, pos Position) error {
	snapped := SnapToGrid(pos)
	return w.UpdateNode(id, NodeUpdate{Position: &snapped})
}

// DeleteNode removes node id together with every edge incident to it.
func (w *Workflow) DeleteNode(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("delete node %q: %w", id, ErrNodeNotFound)
	}
	w.nodes = append(w.nodes[:i:i], w.nodes[i+1:]...)

	kept := make([]Edge, 0, len(w.edges))
	for _, e := range w.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	w.edges = kept

	w.history.Push(w.snapshotLocked())
	return nil
}

// AddEdge connects c.Source to c.Target.
//
// A connection that already exists is a no-op: the existing edge is
// returned and nothing is recorded. Any other rule violation returns an
// error wrapping ErrInvalidConnection and leaves the graph unchanged.
func (w *Workflow) AddEdge(c Connection) (Edge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.edges {
		if e.Source == c.Source && e.Target == c.Target {
			return e, nil
		}
	}
	if err := CheckConnection(c, w.nodes, w.edges); err != nil {
		return Edge{}, err
	}

	edge := Edge{
		ID:           w.newID("edge"),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
	w.edges = append(w.edges, edge)
	w.history.Push(w.snapshotLocked())
	return edge, nil
}

// DeleteEdge removes edge id.
func (w *Workflow) DeleteEdge(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, e := range w.edges {
		if e.ID == id {
			w.edges = append(w.edges[:i:i], w.edges[i+1:]...)
			w.history.Push(w.snapshotLocked())
			return nil
		}
	}
	return fmt.Errorf("delete edge %q: %w", id, ErrEdgeNotFound)
}

// Undo restores the previous snapshot.
func (w *Workflow) Undo() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.history.Undo()
	if !ok {
		return ErrNothingToUndo
	}
	w.restoreLocked(s)
	return nil
}

// Redo restores the snapshot undone most recently.
func (w *Workflow) Redo() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.history.Redo()
	if !ok {
		return ErrNothingToRedo
	}
	w.restoreLocked(s)
	return nil
}

// CanUndo reports whether Undo would succeed.
func (w *Workflow) CanUndo() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.history.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (w *Workflow) CanRedo() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.history.CanRedo()
}

// Clear empties the workflow and its history.
func (w *Workflow) Clear() {
	w.Load(Snapshot{})
}

// Load replaces the whole graph with s and resets history to that single
// state. The replacement is atomic: no caller observes a partial graph.
func (w *Workflow) Load(s Snapshot) {
	s = s.Clone()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.restoreLocked(s)
	w.history.Reset(s)
}

func (w *Workflow) restoreLocked(s Snapshot) {
	w.nodes = s.Nodes
	w.edges = s.Edges
	if w.nodes == nil {
		w.nodes = []Node{}
	}
	if w.edges == nil {
		w.edges = []Edge{}
	}
}

func (w *Workflow) indexLocked(id string) int {
	for i, n := range w.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

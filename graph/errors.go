package graph

import "errors"

// ErrNodeNotFound indicates that an operation referenced a node id that is
// not part of the workflow.
var ErrNodeNotFound = errors.New("node not found")

// ErrEdgeNotFound indicates that an operation referenced an edge id that is
// not part of the workflow.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrInvalidConnection indicates that a proposed edge violates the
// connection rules (see CheckConnection).
var ErrInvalidConnection = errors.New("invalid connection")

// ErrUnresolvedOrder indicates that some nodes could not be placed in the
// execution order because they sit on, or behind, a cycle.
var ErrUnresolvedOrder = errors.New("execution order could not be resolved")

// ErrNothingToUndo and ErrNothingToRedo are returned by Workflow.Undo and
// Workflow.Redo when the history cursor is at either end.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// WorkflowError represents an error from a workflow operation carrying a
// machine-readable code.
type WorkflowError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// Err is the sentinel or underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

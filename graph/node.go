// Package graph provides the workflow graph engine for flowsim: the node and
// edge model, structural validation, execution ordering and the simulation
// runner.
package graph

import (
	"fmt"
	"strings"
)

// NodeType identifies the kind of work a node represents.
type NodeType string

// Supported node types.
const (
	NodeStart     NodeType = "start"
	NodeTask      NodeType = "task"
	NodeApproval  NodeType = "approval"
	NodeAutomated NodeType = "automated"
	NodeEnd       NodeType = "end"
)

// NodeTypes lists every supported node type in palette order.
var NodeTypes = []NodeType{NodeStart, NodeTask, NodeApproval, NodeAutomated, NodeEnd}

// Valid reports whether t is one of the supported node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ApproverRoles is the enumerated set of roles an approval node may name.
var ApproverRoles = []string{"Manager", "HRBP", "Director", "VP"}

// IsApproverRole reports whether role belongs to ApproverRoles.
func IsApproverRole(role string) bool {
	for _, r := range ApproverRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Position is the canvas location of a node. The engine never interprets it;
// it is carried through serialization and history unchanged.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed unit of work in a workflow graph.
//
// Data holds the type-specific fields (see StartData, TaskData, ApprovalData,
// AutomatedData and EndData for the typed views). It is kept as a generic map
// so that fields the engine does not know about survive import and export.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Title returns the node title, falling back to the node type for nodes
// without one (end nodes have no title field).
func (n Node) Title() string {
	if title := n.Data.String("title"); title != "" {
		return title
	}
	return string(n.Type)
}

// label names the node in human-readable issue messages.
func (n Node) label() string {
	if title := n.Data.String("title"); title != "" {
		return title
	}
	return n.ID
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()
	return n
}

// NodeError represents an error tied to a specific node.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// KeyValue is an ordered key/value pair used by start metadata and task
// custom fields.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StartData is the typed view of a start node's data.
type StartData struct {
	Title    string     `json:"title"`
	Metadata []KeyValue `json:"metadata"`
}

// TaskData is the typed view of a task node's data.
type TaskData struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Assignee     string     `json:"assignee"`
	DueDate      string     `json:"dueDate"`
	CustomFields []KeyValue `json:"customFields"`
}

// ApprovalData is the typed view of an approval node's data.
type ApprovalData struct {
	Title                string `json:"title"`
	ApproverRole         string `json:"approverRole"`
	AutoApproveThreshold int    `json:"autoApproveThreshold"`
}

// AutomatedData is the typed view of an automated node's data.
type AutomatedData struct {
	Title      string         `json:"title"`
	ActionID   string         `json:"actionId"`
	Parameters map[string]any `json:"parameters"`
}

// EndData is the typed view of an end node's data.
type EndData struct {
	Message     string `json:"message"`
	ShowSummary bool   `json:"showSummary"`
}

// DefaultData returns the initial data for a freshly added node of type t.
func DefaultData(t NodeType) (NodeData, error) {
	switch t {
	case NodeStart:
		return NodeData{"title": "Start", "metadata": []any{}}, nil
	case NodeTask:
		return NodeData{
			"title":        "New Task",
			"description":  "",
			"assignee":     "",
			"dueDate":      "",
			"customFields": []any{},
		}, nil
	case NodeApproval:
		return NodeData{
			"title":                "Approval Step",
			"approverRole":         "Manager",
			"autoApproveThreshold": 0,
		}, nil
	case NodeAutomated:
		return NodeData{
			"title":      "Automated Step",
			"actionId":   "",
			"parameters": map[string]any{},
		}, nil
	case NodeEnd:
		return NodeData{
			"message":     "Workflow completed successfully",
			"showSummary": false,
		}, nil
	}
	return nil, fmt.Errorf("unknown node type %q", t)
}

// blank reports whether s is empty after trimming whitespace.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

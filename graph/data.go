package graph

import (
	"fmt"
	"strconv"
)

// NodeData is the type-specific payload of a node, keyed by field name.
//
// Values are whatever a JSON decoder produces (string, float64, bool,
// []any, map[string]any) plus the Go literals used by DefaultData. Accessors
// tolerate both.
type NodeData map[string]any

// String returns the string field key, or "" when absent or not a string.
func (d NodeData) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean field key, or false when absent.
func (d NodeData) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Int returns the integer field key. The second result is false when the
// field is absent or not numeric.
func (d NodeData) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// Map returns the object field key, or nil.
func (d NodeData) Map(key string) map[string]any {
	switch v := d[key].(type) {
	case map[string]any:
		return v
	case NodeData:
		return v
	}
	return nil
}

// Clone returns a deep copy of d. Nested maps and slices are copied so that
// later edits to either side never leak into the other.
func (d NodeData) Clone() NodeData {
	if d == nil {
		return nil
	}
	out := make(NodeData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case NodeData:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []KeyValue:
		return append([]KeyValue(nil), t...)
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// Decode converts the data into one of the typed views (StartData, TaskData,
// ApprovalData, AutomatedData, EndData) using a JSON round trip.
func Decode[T any](d NodeData) (T, error) {
	view, err := convert[NodeData, T](d)
	if err != nil {
		return view, fmt.Errorf("decode node data: %w", err)
	}
	return view, nil
}

// Encode converts a typed view back into NodeData.
func Encode[T any](view T) (NodeData, error) {
	d, err := convert[T, NodeData](view)
	if err != nil {
		return nil, fmt.Errorf("encode node data: %w", err)
	}
	return d, nil
}

// Start decodes the node data as StartData.
func (n Node) Start() (StartData, error) { return Decode[StartData](n.Data) }

// Task decodes the node data as TaskData.
func (n Node) Task() (TaskData, error) { return Decode[TaskData](n.Data) }

// Approval decodes the node data as ApprovalData.
func (n Node) Approval() (ApprovalData, error) { return Decode[ApprovalData](n.Data) }

// Automated decodes the node data as AutomatedData.
func (n Node) Automated() (AutomatedData, error) { return Decode[AutomatedData](n.Data) }

// End decodes the node data as EndData.
func (n Node) End() (EndData, error) { return Decode[EndData](n.Data) }

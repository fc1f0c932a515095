package graph

import "fmt"

// CheckConnection reports why a proposed edge may not be added, or nil when
// it may. The returned error wraps ErrInvalidConnection.
//
// Rules: both endpoints exist, no self-loop, end nodes have no outgoing
// edges, start nodes have no incoming edges and no two edges share the same
// (source, target) pair.
func CheckConnection(c Connection, nodes []Node, edges []Edge) error {
	source, ok := FindNode(nodes, c.Source)
	if !ok {
		return fmt.Errorf("%w: source %q does not exist", ErrInvalidConnection, c.Source)
	}
	target, ok := FindNode(nodes, c.Target)
	if !ok {
		return fmt.Errorf("%w: target %q does not exist", ErrInvalidConnection, c.Target)
	}
	if c.Source == c.Target {
		return fmt.Errorf("%w: node %q cannot connect to itself", ErrInvalidConnection, c.Source)
	}
	if source.Type == NodeEnd {
		return fmt.Errorf("%w: end node %q cannot have outgoing connections", ErrInvalidConnection, c.Source)
	}
	if target.Type == NodeStart {
		return fmt.Errorf("%w: start node %q cannot have incoming connections", ErrInvalidConnection, c.Target)
	}
	if HasEdge(edges, c.Source, c.Target) {
		return fmt.Errorf("%w: %s -> %s already exists", ErrInvalidConnection, c.Source, c.Target)
	}
	return nil
}

// CanConnect reports whether c satisfies every connection rule.
func CanConnect(c Connection, nodes []Node, edges []Edge) bool {
	return CheckConnection(c, nodes, edges) == nil
}

package graph

import (
	"fmt"
	"strings"
)

// ExecutionOrder returns the nodes in a topological order consistent with
// edge direction, using Kahn's algorithm.
//
// Nodes with zero in-degree are queued in node-list order and processed
// FIFO, so ties are broken by the order in which nodes became eligible.
// Edges whose endpoints are not both present are ignored. Nodes on a cycle,
// or downstream of one, never reach the queue and are silently left out;
// use ResolveOrder when that must be detected.
func ExecutionOrder(nodes []Node, edges []Edge) []Node {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	inDegree := make([]int, len(nodes))
	successors := make([][]int, len(nodes))
	for _, e := range edges {
		from, okFrom := index[e.Source]
		to, okTo := index[e.Target]
		if !okFrom || !okTo {
			continue
		}
		successors[from] = append(successors[from], to)
		inDegree[to]++
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]Node, 0, len(nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, nodes[i])
		for _, next := range successors[i] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return order
}

// OrderError reports nodes that could not be placed in the execution order.
type OrderError struct {
	// Unresolved lists the ids of the omitted nodes, in node-list order.
	Unresolved []string
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: %d node(s) unresolved (%s)",
		ErrUnresolvedOrder, len(e.Unresolved), strings.Join(e.Unresolved, ", "))
}

// Unwrap lets errors.Is match ErrUnresolvedOrder.
func (e *OrderError) Unwrap() error {
	return ErrUnresolvedOrder
}

// ResolveOrder is the strict form of ExecutionOrder: when some nodes are left
// out it returns the partial order together with an *OrderError naming them.
func ResolveOrder(nodes []Node, edges []Edge) ([]Node, error) {
	order := ExecutionOrder(nodes, edges)
	if len(order) == len(nodes) {
		return order, nil
	}

	placed := make(map[string]bool, len(order))
	for _, n := range order {
		placed[n.ID] = true
	}
	var unresolved []string
	for _, n := range nodes {
		if !placed[n.ID] {
			unresolved = append(unresolved, n.ID)
		}
	}
	return order, &OrderError{Unresolved: unresolved}
}

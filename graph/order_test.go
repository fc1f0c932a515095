package graph

import (
	"errors"
	"reflect"
	"testing"
)

// TestExecutionOrder_Linear verifies a chain resolves in order.
func TestExecutionOrder_Linear(t *testing.T) {
	s, a, b, e := startNode("start"), taskNode("A", "x"), taskNode("B", "y"), endNode("end")
	// Node list deliberately shuffled.
	got := ids(ExecutionOrder([]Node{b, e, s, a}, chain(s, a, b, e)))

	want := []string{"start", "A", "B", "end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestExecutionOrder_TieBreak verifies FIFO order by node-list position.
func TestExecutionOrder_TieBreak(t *testing.T) {
	s := startNode("s")
	a, b, c := taskNode("a", "x"), taskNode("b", "y"), taskNode("c", "z")
	e := endNode("e")
	edges := []Edge{edge("s", "c"), edge("s", "a"), edge("s", "b"), edge("a", "e"), edge("b", "e"), edge("c", "e")}

	got := ids(ExecutionOrder([]Node{s, a, b, c, e}, edges))
	// Successors become eligible in edge order: c, a, b.
	want := []string{"s", "c", "a", "b", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	got = ids(ExecutionOrder([]Node{c, b, a}, nil))
	if !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("expected node-list order for independent nodes, got %v", got)
	}
}

// TestExecutionOrder_Disconnected verifies a lone node is still placed
// and that a cycle is dropped silently.
func TestExecutionOrder_Disconnected(t *testing.T) {
	s, a, e := startNode("s"), taskNode("a", "x"), endNode("e")
	lone := taskNode("lone", "y")
	got := ids(ExecutionOrder([]Node{s, a, lone, e}, chain(s, a, e)))
	if !reflect.DeepEqual(got, []string{"s", "lone", "a", "e"}) {
		t.Errorf("unexpected order %v", got)
	}

	x, y := taskNode("x", "1"), taskNode("y", "2")
	edges := append(chain(s, a, e), edge("x", "y"), edge("y", "x"))
	got = ids(ExecutionOrder([]Node{s, a, e, x, y}, edges))
	if !reflect.DeepEqual(got, []string{"s", "a", "e"}) {
		t.Errorf("expected cycle members omitted, got %v", got)
	}
}

// TestExecutionOrder_DanglingEdges verifies edges to missing nodes are ignored.
func TestExecutionOrder_DanglingEdges(t *testing.T) {
	s, e := startNode("s"), endNode("e")
	edges := append(chain(s, e), edge("ghost", "e"), edge("s", "ghost"))
	got := ids(ExecutionOrder([]Node{s, e}, edges))
	if !reflect.DeepEqual(got, []string{"s", "e"}) {
		t.Errorf("unexpected order %v", got)
	}

	if len(ExecutionOrder(nil, nil)) != 0 {
		t.Error("expected empty order for empty graph")
	}
}

// TestResolveOrder verifies the strict variant reports unresolved nodes.
func TestResolveOrder(t *testing.T) {
	s, a, b, e := startNode("s"), taskNode("a", "x"), taskNode("b", "y"), endNode("e")

	order, err := ResolveOrder([]Node{s, a, b, e}, chain(s, a, b, e))
	if err != nil || len(order) != 4 {
		t.Fatalf("expected full order, got %v, %v", ids(order), err)
	}

	// a <-> b cycle also blocks e.
	edges := []Edge{edge("s", "a"), edge("a", "b"), edge("b", "a"), edge("b", "e")}
	order, err = ResolveOrder([]Node{s, a, b, e}, edges)
	if !errors.Is(err, ErrUnresolvedOrder) {
		t.Fatalf("expected ErrUnresolvedOrder, got %v", err)
	}
	var oe *OrderError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OrderError, got %T", err)
	}
	if !reflect.DeepEqual(oe.Unresolved, []string{"a", "b", "e"}) {
		t.Errorf("unexpected unresolved ids %v", oe.Unresolved)
	}
	if !reflect.DeepEqual(ids(order), []string{"s"}) {
		t.Errorf("expected partial order [s], got %v", ids(order))
	}
}

package graph

// Snapshot is an immutable-by-convention view of a workflow graph: the node
// list and edge list at one point in time.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of the snapshot. Node data is copied
// recursively so edits to the clone never reach the original.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Nodes: cloneNodes(s.Nodes), Edges: cloneEdges(s.Edges)}
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func cloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// HasNodeOfType reports whether any node has type t.
func HasNodeOfType(nodes []Node, t NodeType) bool {
	for _, n := range nodes {
		if n.Type == t {
			return true
		}
	}
	return false
}

// CountNodesOfType returns the number of nodes of type t.
func CountNodesOfType(nodes []Node, t NodeType) int {
	count := 0
	for _, n := range nodes {
		if n.Type == t {
			count++
		}
	}
	return count
}

// OutgoingTargets returns the targets of every edge leaving id, in edge
// order.
func OutgoingTargets(edges []Edge, id string) []string {
	var out []string
	for _, e := range edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// IncomingSources returns the sources of every edge entering id, in edge
// order.
func IncomingSources(edges []Edge, id string) []string {
	var in []string
	for _, e := range edges {
		if e.Target == id {
			in = append(in, e.Source)
		}
	}
	return in
}

// FindNode returns the node with the given id.
func FindNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasEdge reports whether an edge source→target already exists.
func HasEdge(edges []Edge, source, target string) bool {
	for _, e := range edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// adjacency holds outgoing and incoming lists keyed by node id. An edge is
// recorded as outgoing only when its source is a known node, and as incoming
// only when its target is.
type adjacency struct {
	out map[string][]string
	in  map[string][]string
}

func buildAdjacency(nodes []Node, edges []Edge) adjacency {
	known := make(map[string]bool, len(nodes))
	adj := adjacency{
		out: make(map[string][]string, len(nodes)),
		in:  make(map[string][]string, len(nodes)),
	}
	for _, n := range nodes {
		known[n.ID] = true
		adj.out[n.ID] = nil
		adj.in[n.ID] = nil
	}
	for _, e := range edges {
		if known[e.Source] {
			adj.out[e.Source] = append(adj.out[e.Source], e.Target)
		}
		if known[e.Target] {
			adj.in[e.Target] = append(adj.in[e.Target], e.Source)
		}
	}
	return adj
}

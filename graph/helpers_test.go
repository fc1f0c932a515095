package graph

import (
	"context"
	"sync"
	"time"
)

func startNode(id string) Node {
	return Node{ID: id, Type: NodeStart, Data: NodeData{"title": "Start " + id}}
}

func taskNode(id, assignee string) Node {
	return Node{ID: id, Type: NodeTask, Data: NodeData{"title": "Task " + id, "assignee": assignee}}
}

func approvalNode(id, role string) Node {
	return Node{ID: id, Type: NodeApproval, Data: NodeData{"title": "Approve " + id, "approverRole": role}}
}

func automatedNode(id, action string) Node {
	return Node{ID: id, Type: NodeAutomated, Data: NodeData{
		"title":      "Auto " + id,
		"actionId":   action,
		"parameters": map[string]any{"to": "new.hire@example.com"},
	}}
}

func endNode(id string) Node {
	return Node{ID: id, Type: NodeEnd, Data: NodeData{"message": "Finished " + id, "showSummary": true}}
}

func edge(source, target string) Edge {
	return Edge{ID: source + "->" + target, Source: source, Target: target}
}

// chain links nodes in order with one edge per consecutive pair.
func chain(nodes ...Node) []Edge {
	edges := make([]Edge, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, edge(nodes[i-1].ID, nodes[i].ID))
	}
	return edges
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// mapCatalog is a minimal Catalog over a map.
type mapCatalog struct {
	automations map[string]Automation
	err         error
}

func (m mapCatalog) Fetch(context.Context) ([]Automation, error) {
	out := make([]Automation, 0, len(m.automations))
	for _, a := range m.automations {
		out = append(out, a)
	}
	return out, m.err
}

func (m mapCatalog) Lookup(_ context.Context, id string) (Automation, bool, error) {
	if m.err != nil {
		return Automation{}, false, m.err
	}
	a, ok := m.automations[id]
	return a, ok, nil
}

func testCatalog() mapCatalog {
	return mapCatalog{automations: map[string]Automation{
		"send_email": {
			ID:    "send_email",
			Label: "Send Email",
			Params: []Param{
				{Name: "to", Label: "To", Type: ParamText, Required: true},
				{Name: "subject", Label: "Subject", Type: ParamText, Required: true},
				{Name: "cc", Label: "CC", Type: ParamText},
			},
		},
	}}
}

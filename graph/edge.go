package graph

// Edge is a directed connection from one node's output to another node's
// input.
//
// The handles identify which port of the node the edge attaches to on the
// canvas. They are opaque to the engine and only carried through.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connection is a proposed edge, before it has been given an id.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connection returns the endpoints of e as a Connection.
func (e Edge) Connection() Connection {
	return Connection{
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
	}
}

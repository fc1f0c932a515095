package graph

import "context"

// ParamType is the input kind of an automation parameter.
type ParamType string

// Parameter input kinds.
const (
	ParamText     ParamType = "text"
	ParamTextarea ParamType = "textarea"
	ParamNumber   ParamType = "number"
	ParamSelect   ParamType = "select"
)

// Param describes one parameter accepted by an automation.
type Param struct {
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Type     ParamType     `json:"type"`
	Required bool          `json:"required"`
	Options  []ParamOption `json:"options,omitempty"`
}

// ParamOption is one choice of a select parameter.
type ParamOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Valid reports whether t is a known parameter input kind.
func (t ParamType) Valid() bool {
	switch t {
	case ParamText, ParamTextarea, ParamNumber, ParamSelect:
		return true
	}
	return false
}

// Automation is an entry of the automation catalog: an action id that an
// automated node can reference, with its parameter schema.
type Automation struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Catalog resolves automation ids. Implementations live in graph/catalog.
type Catalog interface {
	// Fetch returns every known automation.
	Fetch(ctx context.Context) ([]Automation, error)

	// Lookup resolves a single automation id.
	Lookup(ctx context.Context, id string) (Automation, bool, error)
}

package catalog

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/dshills/flowsim/graph"
)

// hclCatalogFile is the top-level structure of a catalog file:
//
//	automation "send_email" {
//	  label       = "Send Email"
//	  description = "Send an email notification"
//
//	  param "to" {
//	    label    = "To"
//	    type     = "text"
//	    required = true
//	  }
//
//	  param "priority" {
//	    type = "select"
//	    option "low" { label = "Low" }
//	  }
//	}
type hclCatalogFile struct {
	Automations []*hclAutomation `hcl:"automation,block"`
}

type hclAutomation struct {
	ID          string      `hcl:"id,label"`
	Label       string      `hcl:"label"`
	Description string      `hcl:"description,optional"`
	Params      []*hclParam `hcl:"param,block"`
}

type hclParam struct {
	Name     string       `hcl:"name,label"`
	Label    string       `hcl:"label,optional"`
	Type     string       `hcl:"type,optional"`
	Required bool         `hcl:"required,optional"`
	Options  []*hclOption `hcl:"option,block"`
}

type hclOption struct {
	Value string `hcl:"value,label"`
	Label string `hcl:"label,optional"`
}

// LoadHCL parses the catalog file at path.
func LoadHCL(path string) (*Static, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, diags)
	}
	return decode(file, path)
}

// ParseHCL parses catalog source held in memory. filename is only used in
// diagnostics.
func ParseHCL(src []byte, filename string) (*Static, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Static, error) {
	var parsed hclCatalogFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", filename, diags)
	}

	automations := make([]graph.Automation, 0, len(parsed.Automations))
	for _, a := range parsed.Automations {
		automation := graph.Automation{
			ID:          a.ID,
			Label:       a.Label,
			Description: a.Description,
			Params:      make([]graph.Param, 0, len(a.Params)),
		}
		for _, p := range a.Params {
			param, err := convertParam(p)
			if err != nil {
				return nil, fmt.Errorf("catalog file %s: automation %q: %w", filename, a.ID, err)
			}
			automation.Params = append(automation.Params, param)
		}
		automations = append(automations, automation)
	}

	s, err := New(automations...)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", filename, err)
	}
	return s, nil
}

func convertParam(p *hclParam) (graph.Param, error) {
	param := graph.Param{
		Name:     p.Name,
		Label:    p.Label,
		Type:     graph.ParamType(p.Type),
		Required: p.Required,
	}
	if param.Label == "" {
		param.Label = p.Name
	}
	if param.Type == "" {
		param.Type = graph.ParamText
	}
	if !param.Type.Valid() {
		return graph.Param{}, fmt.Errorf("param %q: unknown type %q", p.Name, p.Type)
	}

	for _, o := range p.Options {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		param.Options = append(param.Options, graph.ParamOption{Value: o.Value, Label: label})
	}
	if param.Type == graph.ParamSelect && len(param.Options) == 0 {
		return graph.Param{}, fmt.Errorf("param %q: select requires at least one option", p.Name)
	}
	if param.Type != graph.ParamSelect && len(param.Options) > 0 {
		return graph.Param{}, fmt.Errorf("param %q: options are only allowed on select params", p.Name)
	}
	return param, nil
}

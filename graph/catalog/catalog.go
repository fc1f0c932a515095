// Package catalog provides automation catalogs: the built-in defaults, a
// loader for HCL catalog files and a caching wrapper around any source.
package catalog

import (
	"context"
	"fmt"

	"github.com/dshills/flowsim/graph"
)

// Static is an in-memory catalog with a fixed automation list. It
// implements graph.Catalog.
type Static struct {
	automations []graph.Automation
	byID        map[string]int
}

// New builds a Static catalog. Automation ids must be unique and non-empty.
func New(automations ...graph.Automation) (*Static, error) {
	s := &Static{
		automations: make([]graph.Automation, 0, len(automations)),
		byID:        make(map[string]int, len(automations)),
	}
	for _, a := range automations {
		if a.ID == "" {
			return nil, fmt.Errorf("catalog: automation %q has no id", a.Label)
		}
		if _, dup := s.byID[a.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate automation id %q", a.ID)
		}
		s.byID[a.ID] = len(s.automations)
		s.automations = append(s.automations, copyAutomation(a))
	}
	return s, nil
}

// Fetch returns a copy of every automation, in definition order.
func (s *Static) Fetch(context.Context) ([]graph.Automation, error) {
	out := make([]graph.Automation, len(s.automations))
	for i, a := range s.automations {
		out[i] = copyAutomation(a)
	}
	return out, nil
}

// Lookup resolves id.
func (s *Static) Lookup(_ context.Context, id string) (graph.Automation, bool, error) {
	i, ok := s.byID[id]
	if !ok {
		return graph.Automation{}, false, nil
	}
	return copyAutomation(s.automations[i]), true, nil
}

// Len returns the number of automations.
func (s *Static) Len() int { return len(s.automations) }

func copyAutomation(a graph.Automation) graph.Automation {
	params := make([]graph.Param, len(a.Params))
	for i, p := range a.Params {
		p.Options = append([]graph.ParamOption(nil), p.Options...)
		params[i] = p
	}
	a.Params = params
	return a
}

// Default returns the built-in catalog of six HR automations.
func Default() *Static {
	s, err := New(defaultAutomations()...)
	if err != nil {
		panic(err) // built-in list is known to be valid
	}
	return s
}

func text(name, label string) graph.Param {
	return graph.Param{Name: name, Label: label, Type: graph.ParamText, Required: true}
}

func textarea(name, label string) graph.Param {
	return graph.Param{Name: name, Label: label, Type: graph.ParamTextarea, Required: true}
}

func choice(name, label string, options ...graph.ParamOption) graph.Param {
	return graph.Param{Name: name, Label: label, Type: graph.ParamSelect, Required: true, Options: options}
}

func defaultAutomations() []graph.Automation {
	return []graph.Automation{
		{
			ID:          "send_email",
			Label:       "Send Email",
			Description: "Send an email notification to specified recipients",
			Params:      []graph.Param{text("to", "To"), text("subject", "Subject"), textarea("body", "Body")},
		},
		{
			ID:          "generate_doc",
			Label:       "Generate Document",
			Description: "Generate a document from a template",
			Params: []graph.Param{
				choice("template", "Template",
					graph.ParamOption{Value: "offer_letter", Label: "Offer Letter"},
					graph.ParamOption{Value: "employment_contract", Label: "Employment Contract"},
					graph.ParamOption{Value: "nda", Label: "NDA Agreement"},
					graph.ParamOption{Value: "policy_acknowledgment", Label: "Policy Acknowledgment"},
				),
				text("recipient", "Recipient"),
			},
		},
		{
			ID:          "slack_notify",
			Label:       "Send Slack Notification",
			Description: "Post a message to a Slack channel",
			Params:      []graph.Param{text("channel", "Channel"), textarea("message", "Message")},
		},
		{
			ID:          "create_ticket",
			Label:       "Create Support Ticket",
			Description: "Create a ticket in the support system",
			Params: []graph.Param{
				choice("priority", "Priority",
					graph.ParamOption{Value: "low", Label: "Low"},
					graph.ParamOption{Value: "medium", Label: "Medium"},
					graph.ParamOption{Value: "high", Label: "High"},
					graph.ParamOption{Value: "critical", Label: "Critical"},
				),
				textarea("description", "Description"),
			},
		},
		{
			ID:          "update_hris",
			Label:       "Update HRIS Record",
			Description: "Update employee information in the HR system",
			Params: []graph.Param{
				text("employeeId", "Employee ID"),
				choice("field", "Field to Update",
					graph.ParamOption{Value: "status", Label: "Employment Status"},
					graph.ParamOption{Value: "department", Label: "Department"},
					graph.ParamOption{Value: "title", Label: "Job Title"},
					graph.ParamOption{Value: "manager", Label: "Manager"},
				),
				text("value", "New Value"),
			},
		},
		{
			ID:          "schedule_meeting",
			Label:       "Schedule Meeting",
			Description: "Schedule a calendar meeting",
			Params: []graph.Param{
				text("title", "Meeting Title"),
				text("attendees", "Attendees (comma-separated)"),
				{Name: "duration", Label: "Duration (minutes)", Type: graph.ParamNumber, Required: true},
			},
		},
	}
}

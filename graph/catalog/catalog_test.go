package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowsim/graph"
)

var _ graph.Catalog = (*Static)(nil)
var _ graph.Catalog = (*Cached)(nil)

func TestDefault(t *testing.T) {
	ctx := context.Background()
	c := Default()

	all, err := c.Fetch(ctx)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"send_email", "generate_doc", "slack_notify", "create_ticket", "update_hris", "schedule_meeting"}, ids)

	a, ok, err := c.Lookup(ctx, "generate_doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Generate Document", a.Label)
	require.Len(t, a.Params, 2)
	assert.Equal(t, graph.ParamSelect, a.Params[0].Type)
	assert.Len(t, a.Params[0].Options, 4)

	_, ok, err = c.Lookup(ctx, "launch_rocket")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatic_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := Default()

	a, _, _ := c.Lookup(ctx, "create_ticket")
	a.Params[0].Options[0].Label = "changed"
	a.Label = "changed"

	again, _, _ := c.Lookup(ctx, "create_ticket")
	assert.Equal(t, "Create Support Ticket", again.Label)
	assert.Equal(t, "Low", again.Params[0].Options[0].Label)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(graph.Automation{ID: "a"}, graph.Automation{ID: "a"})
	assert.ErrorContains(t, err, "duplicate automation id")

	_, err = New(graph.Automation{Label: "No id"})
	assert.ErrorContains(t, err, "has no id")
}

const sampleHCL = `
automation "send_email" {
  label       = "Send Email"
  description = "Send an email notification"

  param "to" {
    label    = "To"
    required = true
  }

  param "body" {
    type = "textarea"
  }
}

automation "create_ticket" {
  label = "Create Support Ticket"

  param "priority" {
    label    = "Priority"
    type     = "select"
    required = true
    option "low" { label = "Low" }
    option "high" {}
  }
}
`

func TestParseHCL(t *testing.T) {
	ctx := context.Background()
	c, err := ParseHCL([]byte(sampleHCL), "catalog.hcl")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	email, ok, err := c.Lookup(ctx, "send_email")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Send an email notification", email.Description)
	require.Len(t, email.Params, 2)
	assert.Equal(t, graph.Param{Name: "to", Label: "To", Type: graph.ParamText, Required: true}, email.Params[0])
	assert.Equal(t, graph.Param{Name: "body", Label: "body", Type: graph.ParamTextarea}, email.Params[1])

	ticket, ok, _ := c.Lookup(ctx, "create_ticket")
	require.True(t, ok)
	assert.Equal(t, []graph.ParamOption{{Value: "low", Label: "Low"}, {Value: "high", Label: "high"}}, ticket.Params[0].Options)
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `automation "x" {`, "failed to parse"},
		{"missing label", `automation "x" {}`, "failed to decode"},
		{"bad type", `automation "x" {
  label = "X"
  param "p" { type = "date" }
}`, `unknown type "date"`},
		{"select without options", `automation "x" {
  label = "X"
  param "p" { type = "select" }
}`, "select requires at least one option"},
		{"duplicate", `automation "x" { label = "X" }
automation "x" { label = "Y" }`, "duplicate automation id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHCL([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automations.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sampleHCL), 0o600))

	c, err := LoadHCL(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadHCL(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fail := true
	src := SourceFunc(func(ctx context.Context) ([]graph.Automation, error) {
		calls++
		if fail {
			return nil, errors.New("backend down")
		}
		return Default().Fetch(ctx)
	})
	c := NewCached(src, nil)

	_, err := c.Fetch(ctx)
	require.Error(t, err)
	_, _, err = c.Lookup(ctx, "send_email")
	require.Error(t, err)
	assert.Equal(t, 2, calls, "failures are not cached")

	fail = false
	all, err := c.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	a, ok, err := c.Lookup(ctx, "slack_notify")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Send Slack Notification", a.Label)
	assert.Equal(t, 3, calls, "success is fetched once")

	c.Invalidate()
	_, err = c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

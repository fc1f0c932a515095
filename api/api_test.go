package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/catalog"
	"github.com/dshills/flowsim/graph/codec"
	"github.com/dshills/flowsim/graph/store"
)

func onboarding() ([]graph.Node, []graph.Edge) {
	nodes := []graph.Node{
		{ID: "start", Type: graph.NodeStart, Data: graph.NodeData{"title": "Begin"}},
		{ID: "task", Type: graph.NodeTask, Data: graph.NodeData{"title": "Collect documents", "assignee": "hr@example.com"}},
		{ID: "approve", Type: graph.NodeApproval, Data: graph.NodeData{"title": "Sign off", "approverRole": "Manager"}},
		{ID: "mail", Type: graph.NodeAutomated, Data: graph.NodeData{
			"title":      "Welcome mail",
			"actionId":   "send_email",
			"parameters": map[string]any{"to": "new@example.com", "subject": "Welcome"},
		}},
		{ID: "end", Type: graph.NodeEnd, Data: graph.NodeData{"message": "Onboarded"}},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "start", Target: "task"},
		{ID: "e2", Source: "task", Target: "approve"},
		{ID: "e3", Source: "approve", Target: "mail"},
		{ID: "e4", Source: "mail", Target: "end"},
	}
	return nodes, edges
}

func document(t *testing.T, nodes []graph.Node, edges []graph.Edge) []byte {
	t.Helper()
	data, err := codec.Marshal(nodes, edges, codec.Metadata{"name": "Onboarding"})
	require.NoError(t, err)
	return data
}

type fixture struct {
	server   *Server
	store    *store.MemStore
	registry *prometheus.Registry
}

func newFixture(t *testing.T, opts ...graph.Option) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	st := store.NewMemStore()
	t.Cleanup(func() { _ = st.Close() })

	runnerOpts := append([]graph.Option{
		graph.WithStepDelay(0, 0),
		graph.WithMetrics(graph.NewPrometheusMetrics(reg)),
	}, opts...)
	srv, err := New(Config{
		Store:         st,
		Catalog:       catalog.Default(),
		RunnerOptions: runnerOpts,
		Gatherer:      reg,
	})
	require.NoError(t, err)
	return &fixture{server: srv, store: st, registry: reg}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAutomations(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/automations", nil)
	require.Equal(t, http.StatusOK, status)

	list := decode[[]graph.Automation](t, body)
	require.Len(t, list, 6)
	assert.Equal(t, "send_email", list[0].ID)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()

	status, body := f.do(t, http.MethodPost, "/validate", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[graph.Result](t, body).IsValid)

	nodes[3].Data["actionId"] = "launch_rocket"
	status, body = f.do(t, http.MethodPost, "/validate", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status)
	result := decode[graph.Result](t, body)
	assert.False(t, result.IsValid)
	assert.True(t, result.HasCode(graph.CodeUnknownAction))
}

func TestValidate_BadBody(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/validate", []byte(`{"nodes":[]}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "failed to parse workflow")

	status, _ = f.do(t, http.MethodPost, "/validate", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOrder(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()

	status, body := f.do(t, http.MethodPost, "/order", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"start", "task", "approve", "mail", "end"}, decode[OrderResponse](t, body).Order)

	edges = append(edges, graph.Edge{ID: "back", Source: "approve", Target: "task"})
	status, body = f.do(t, http.MethodPost, "/order", document(t, nodes, edges))
	require.Equal(t, http.StatusUnprocessableEntity, status)
	resp := decode[OrderResponse](t, body)
	assert.Equal(t, []string{"start"}, resp.Order)
	assert.Equal(t, []string{"task", "approve", "mail", "end"}, resp.Unresolved)
}

func TestSimulate(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()

	status, body := f.do(t, http.MethodPost, "/simulate", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status, string(body))

	result := decode[graph.RunResult](t, body)
	assert.True(t, result.Success)
	require.Len(t, result.Steps, 5)
	assert.Equal(t, "Executed: Send Email", result.Steps[3].Output["message"])

	stored, err := store.GetRun(t.Context(), f.store, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, stored.RunID)
	assert.True(t, stored.Success)
}

func TestSimulate_Invalid(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()
	nodes[1].Data["assignee"] = ""

	status, body := f.do(t, http.MethodPost, "/simulate", document(t, nodes, edges))
	require.Equal(t, http.StatusUnprocessableEntity, status)

	result := decode[graph.RunResult](t, body)
	assert.False(t, result.Success)
	assert.Equal(t, "validation failed", result.Error)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.HasCode(graph.CodeMissingAssignee))
	assert.Empty(t, result.Steps)
}

func TestSimulate_Rejected(t *testing.T) {
	f := newFixture(t, graph.WithApprovalDecider(graph.RejectAll))
	nodes, edges := onboarding()

	status, body := f.do(t, http.MethodPost, "/simulate", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status)

	result := decode[graph.RunResult](t, body)
	assert.False(t, result.Success)
	assert.Equal(t, "Approval rejected by Manager", result.Error)
	assert.Len(t, result.Steps, 3)
}

func TestWorkflowLifecycle(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()

	status, body := f.do(t, http.MethodPost, "/workflows", document(t, nodes, edges))
	require.Equal(t, http.StatusCreated, status)
	saved := decode[WorkflowSummary](t, body)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "Onboarding", saved.Name)

	status, body = f.do(t, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[[]WorkflowSummary](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	status, body = f.do(t, http.MethodGet, "/workflows/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, status)
	doc, err := codec.Deserialize(body)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 5)

	status, body = f.do(t, http.MethodPost, "/workflows/"+saved.ID+"/simulate", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	run := decode[graph.RunResult](t, body)

	status, body = f.do(t, http.MethodGet, "/workflows/"+saved.ID+"/runs", nil)
	require.Equal(t, http.StatusOK, status)
	runs := decode[[]RunSummary](t, body)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].ID)
	assert.True(t, runs[0].Success)

	status, _ = f.do(t, http.MethodGet, "/runs/"+run.RunID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodDelete, "/workflows/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = f.do(t, http.MethodGet, "/workflows/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "not found")

	status, _ = f.do(t, http.MethodGet, "/runs/"+run.RunID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/workflows/nope", "/workflows/nope/runs", "/runs/nope"} {
		status, _ := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
	}
	status, _ := f.do(t, http.MethodDelete, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	nodes, edges := onboarding()
	status, _ := f.do(t, http.MethodPost, "/simulate", document(t, nodes, edges))
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `flowsim_runs_total{outcome="completed"} 1`)
	assert.Contains(t, string(body), "flowsim_steps_total")
}

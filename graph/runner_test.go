package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/flowsim/graph/emit"
)

// newTestRunner builds a runner with no delay and a deterministic clock.
func newTestRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithStepDelay(0, 0),
		WithClock(newFakeClock(10 * time.Millisecond).Now),
		WithRunIDGenerator(func() string { return "run-1" }),
	}
	r, err := NewRunner(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

// TestRunner_Success verifies a valid three-node run completes in order.
func TestRunner_Success(t *testing.T) {
	s, tk, e := startNode("s"), taskNode("t", "ann"), endNode("e")
	r := newTestRunner(t)

	if r.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", r.State())
	}

	var records []StepRecord
	result := r.Run(context.Background(), []Node{e, tk, s}, chain(s, tk, e), func(rec StepRecord) {
		records = append(records, rec)
	})

	if !result.Success || result.Error != "" {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.RunID != "run-1" {
		t.Errorf("expected run id run-1, got %q", result.RunID)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	got := []string{result.Steps[0].NodeID, result.Steps[1].NodeID, result.Steps[2].NodeID}
	if !reflect.DeepEqual(got, []string{"s", "t", "e"}) {
		t.Errorf("expected steps in execution order, got %v", got)
	}
	for _, step := range result.Steps {
		if step.Status != StepCompleted || step.CompletedAt == nil || step.Duration == nil {
			t.Errorf("incomplete step record %+v", step)
		}
	}

	// Two callbacks per step: running, then terminal.
	if len(records) != 6 {
		t.Fatalf("expected 6 callbacks, got %d", len(records))
	}
	for i := 0; i < len(records); i += 2 {
		if records[i].Status != StepRunning || records[i+1].Status != StepCompleted {
			t.Errorf("unexpected transition %s -> %s", records[i].Status, records[i+1].Status)
		}
		if records[i].CompletedAt != nil {
			t.Error("running record must not carry a completion time")
		}
	}

	if r.State() != StateCompleted {
		t.Errorf("expected completed state, got %s", r.State())
	}
	if result.TotalDuration <= 0 || !result.CompletedAt.After(result.StartedAt) {
		t.Errorf("expected positive total duration, got %d", result.TotalDuration)
	}
}

// TestRunner_Outputs verifies the stub output of every node type.
func TestRunner_Outputs(t *testing.T) {
	s := startNode("s")
	tk := taskNode("t", "ann")
	ap := approvalNode("a", "Manager")
	au := automatedNode("m", "send_email")
	e := endNode("e")
	r := newTestRunner(t, WithCatalog(testCatalog()))

	result := r.Run(context.Background(), []Node{s, tk, ap, au, e}, chain(s, tk, ap, au, e), nil)
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	out := result.Steps[0].Output
	if out["message"] != "Workflow started" {
		t.Errorf("unexpected start output %v", out)
	}
	out = result.Steps[1].Output
	if out["message"] != `Task "Task t" completed` || out["assignee"] != "ann" || out["completedBy"] != "ann" {
		t.Errorf("unexpected task output %v", out)
	}
	out = result.Steps[2].Output
	if out["message"] != "Approved by Manager" || out["approver"] != "Manager" {
		t.Errorf("unexpected approval output %v", out)
	}
	out = result.Steps[3].Output
	if out["message"] != "Executed: Send Email" || out["action"] != "send_email" || out["result"] != "Success" {
		t.Errorf("unexpected automated output %v", out)
	}
	out = result.Steps[4].Output
	if out["message"] != "Finished e" || out["showSummary"] != true {
		t.Errorf("unexpected end output %v", out)
	}
}

// TestRunner_Abort verifies that a rejected approval stops the run.
func TestRunner_Abort(t *testing.T) {
	s, ap, tk, e := startNode("s"), approvalNode("a", "Director"), taskNode("t", "ann"), endNode("e")
	r := newTestRunner(t, WithApprovalDecider(RejectAll))

	var records []StepRecord
	result := r.Run(context.Background(), []Node{s, ap, tk, e}, chain(s, ap, tk, e), func(rec StepRecord) {
		records = append(records, rec)
	})

	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 steps before abort, got %d", len(result.Steps))
	}
	last := result.Steps[1]
	if last.Status != StepError || last.Error != "Approval rejected by Director" {
		t.Errorf("unexpected failing step %+v", last)
	}
	if result.Error != last.Error {
		t.Errorf("expected run error %q, got %q", last.Error, result.Error)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 callbacks, got %d", len(records))
	}
	for _, rec := range records {
		if rec.NodeID == "t" || rec.NodeID == "e" {
			t.Errorf("step %s must not start after abort", rec.NodeID)
		}
	}
	if r.State() != StateFailed {
		t.Errorf("expected failed state, got %s", r.State())
	}
}

// TestRunner_InvalidGraph verifies an invalid graph runs no steps.
func TestRunner_InvalidGraph(t *testing.T) {
	r := newTestRunner(t)
	called := false

	result := r.Run(context.Background(), []Node{taskNode("t", "ann")}, nil, func(StepRecord) {
		called = true
	})

	if called {
		t.Error("callback must not be invoked for an invalid graph")
	}
	if result.Success || result.Error != "validation failed" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Validation == nil || result.Validation.IsValid {
		t.Fatal("expected validation result to be attached")
	}
	if !result.Validation.HasCode(CodeNoStartNode) {
		t.Errorf("expected NO_START_NODE, got %+v", result.Validation.Errors)
	}
	if len(result.Steps) != 0 || result.Steps == nil {
		t.Errorf("expected empty, non-nil steps, got %#v", result.Steps)
	}
	if r.State() != StateFailed {
		t.Errorf("expected failed state, got %s", r.State())
	}
}

// TestRunner_CallbackCopies verifies callback records are detached copies.
func TestRunner_CallbackCopies(t *testing.T) {
	s, e := startNode("s"), endNode("e")
	r := newTestRunner(t)

	result := r.Run(context.Background(), []Node{s, e}, chain(s, e), func(rec StepRecord) {
		if rec.Output != nil {
			rec.Output["message"] = "tampered"
		}
		if rec.Duration != nil {
			*rec.Duration = -1
		}
	})

	if result.Steps[0].Output["message"] != "Workflow started" {
		t.Errorf("callback mutated the run result: %v", result.Steps[0].Output)
	}
	if *result.Steps[0].Duration < 0 {
		t.Error("callback mutated the step duration")
	}
}

// TestRunner_InputIsolation verifies edits to the caller's graph during a
// run do not reach the run.
func TestRunner_InputIsolation(t *testing.T) {
	s, e := startNode("s"), endNode("e")
	nodes := []Node{s, e}
	r := newTestRunner(t)

	result := r.Run(context.Background(), nodes, chain(s, e), func(StepRecord) {
		nodes[1].Data["message"] = "edited mid-run"
	})

	if got := result.Steps[1].Output["message"]; got != "Finished e" {
		t.Errorf("expected run to use its own copy, got %v", got)
	}
}

// TestRunner_Cancellation verifies cancellation fails the in-flight step.
func TestRunner_Cancellation(t *testing.T) {
	s, e := startNode("s"), endNode("e")
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.Run(ctx, []Node{s, e}, chain(s, e), nil)

	if result.Success {
		t.Fatal("expected cancelled run to fail")
	}
	if len(result.Steps) != 1 || result.Steps[0].Status != StepError {
		t.Fatalf("expected one failed step, got %+v", result.Steps)
	}
	if !strings.Contains(result.Error, context.Canceled.Error()) {
		t.Errorf("expected context error, got %q", result.Error)
	}
}

// TestRunner_DeciderError verifies decider failures become node errors.
func TestRunner_DeciderError(t *testing.T) {
	s, ap, e := startNode("s"), approvalNode("a", "VP"), endNode("e")
	boom := ApprovalFunc(func(context.Context, Node) (Decision, error) {
		return Decision{}, errors.New("model unavailable")
	})
	r := newTestRunner(t, WithApprovalDecider(boom))

	result := r.Run(context.Background(), []Node{s, ap, e}, chain(s, ap, e), nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "approval decision failed: model unavailable" {
		t.Errorf("unexpected error %q", result.Error)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.NodeID != "a" || last.Error != result.Error {
		t.Errorf("expected step error without node prefix, got %+v", last)
	}
}

// TestStepRecord_JSON verifies the error key is null until a step fails.
func TestStepRecord_JSON(t *testing.T) {
	running, err := json.Marshal(StepRecord{NodeID: "s", Status: StepRunning})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(running, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := m["error"]; !ok || v != nil {
		t.Errorf("expected error: null, got %s", running)
	}
	if v, ok := m["completedAt"]; !ok || v != nil {
		t.Errorf("expected completedAt: null, got %s", running)
	}

	failed, _ := json.Marshal(StepRecord{NodeID: "a", Status: StepError, Error: "boom"})
	var back StepRecord
	if err := json.Unmarshal(failed, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Error != "boom" || back.NodeID != "a" || back.Status != StepError {
		t.Errorf("round trip lost fields: %+v", back)
	}
}

// TestRunner_RandomApprovalDeterministic verifies seeded runs repeat.
func TestRunner_RandomApprovalDeterministic(t *testing.T) {
	s := startNode("s")
	approvals := []Node{approvalNode("a1", "Manager"), approvalNode("a2", "HRBP"), approvalNode("a3", "VP")}
	e := endNode("e")
	nodes := append(append([]Node{s}, approvals...), e)
	edges := chain(nodes...)

	outcome := func() (bool, int) {
		r := newTestRunner(t, WithApprovalDecider(RandomApproval(0.5, 7)))
		res := r.Run(context.Background(), nodes, edges, nil)
		return res.Success, len(res.Steps)
	}
	ok1, n1 := outcome()
	ok2, n2 := outcome()
	if ok1 != ok2 || n1 != n2 {
		t.Errorf("expected identical runs, got (%v,%d) and (%v,%d)", ok1, n1, ok2, n2)
	}
}

// TestRunner_UnknownAutomation verifies catalog resolution during a run.
func TestRunner_UnknownAutomation(t *testing.T) {
	s, au, e := startNode("s"), automatedNode("m", "launch_rocket"), endNode("e")

	t.Run("without catalog uses raw id", func(t *testing.T) {
		r := newTestRunner(t)
		res := r.Run(context.Background(), []Node{s, au, e}, chain(s, au, e), nil)
		if !res.Success {
			t.Fatalf("expected success, got %q", res.Error)
		}
		if res.Steps[1].Output["message"] != "Executed: launch_rocket" {
			t.Errorf("unexpected output %v", res.Steps[1].Output)
		}
	})

	t.Run("with catalog refuses the run", func(t *testing.T) {
		r := newTestRunner(t, WithCatalog(testCatalog()))
		res := r.Run(context.Background(), []Node{s, au, e}, chain(s, au, e), nil)
		if res.Success || res.Validation == nil || !res.Validation.HasCode(CodeUnknownAction) {
			t.Errorf("expected UNKNOWN_ACTION refusal, got %+v", res)
		}
	})
}

// TestRunner_Durations verifies durations come from the injected clock.
func TestRunner_Durations(t *testing.T) {
	s, e := startNode("s"), endNode("e")
	r := newTestRunner(t)

	res := r.Run(context.Background(), []Node{s, e}, chain(s, e), nil)

	// Start step reads the clock twice (start, completion): one tick.
	if d := *res.Steps[0].Duration; d != 10 {
		t.Errorf("expected 10ms start step, got %d", d)
	}
	// End step outputs no timestamp either.
	if d := *res.Steps[1].Duration; d != 10 {
		t.Errorf("expected 10ms end step, got %d", d)
	}
}

// TestRunner_Metrics verifies outcomes are recorded in Prometheus.
func TestRunner_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)
	r := newTestRunner(t, WithMetrics(metrics))

	s, e := startNode("s"), endNode("e")
	r.Run(context.Background(), []Node{s, e}, chain(s, e), nil)
	r.Run(context.Background(), []Node{endNode("x")}, nil, nil)

	if got := testutil.ToFloat64(metrics.runs.WithLabelValues(OutcomeCompleted)); got != 1 {
		t.Errorf("expected 1 completed run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.runs.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Errorf("expected 1 invalid run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.activeRuns); got != 0 {
		t.Errorf("expected no active runs, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.steps.WithLabelValues(string(NodeStart), string(StepCompleted))); got != 1 {
		t.Errorf("expected 1 completed start step, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.validationIssues.WithLabelValues(CodeNoStartNode, string(SeverityError))); got != 1 {
		t.Errorf("expected 1 NO_START_NODE issue, got %v", got)
	}
}

// TestRunner_Events verifies the emitted event sequence.
func TestRunner_Events(t *testing.T) {
	buf := emit.NewBufferedEmitter()
	r := newTestRunner(t, WithEmitter(buf))

	s, e := startNode("s"), endNode("e")
	r.Run(context.Background(), []Node{s, e}, chain(s, e), nil)

	var msgs []string
	for _, ev := range buf.GetHistory("run-1") {
		msgs = append(msgs, ev.Msg)
	}
	want := []string{
		emit.MsgRunStarted,
		emit.MsgStepRunning, emit.MsgStepCompleted,
		emit.MsgStepRunning, emit.MsgStepCompleted,
		emit.MsgRunCompleted,
	}
	if !reflect.DeepEqual(msgs, want) {
		t.Errorf("expected %v, got %v", want, msgs)
	}
}

// TestNewRunner_OptionErrors verifies invalid options are rejected.
func TestNewRunner_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil decider", WithApprovalDecider(nil)},
		{"negative delay", WithStepDelay(-1, 0)},
		{"inverted delay", WithStepDelay(time.Second, time.Millisecond)},
		{"nil clock", WithClock(nil)},
		{"nil run id generator", WithRunIDGenerator(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(tt.opt)
			var we *WorkflowError
			if !errors.As(err, &we) || we.Code != "INVALID_OPTION" {
				t.Errorf("expected INVALID_OPTION WorkflowError, got %v", err)
			}
		})
	}
}

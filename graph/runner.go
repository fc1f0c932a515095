package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dshills/flowsim/graph/emit"
)

// RunState is the lifecycle state of a Runner.
type RunState string

// Runner states: idle → running → completed | failed.
const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// StepStatus is the status of a single step record.
type StepStatus string

// Step statuses.
const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// ErrValidationFailed is the run error reported when pre-run validation
// finds blocking issues.
var ErrValidationFailed = errors.New("validation failed")

// StepRecord describes the execution of one node in a run.
//
// Records delivered to the step callback are copies: the runner never
// mutates a record after it has been delivered.
type StepRecord struct {
	NodeID      string         `json:"nodeId"`
	NodeType    NodeType       `json:"nodeType"`
	Title       string         `json:"title"`
	Status      StepStatus     `json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	Duration    *int64         `json:"duration"` // milliseconds
	Output      map[string]any `json:"output"`
	Error       string         `json:"error"`
}

// MarshalJSON encodes an empty Error as null, so a running or completed
// record still carries the error key.
func (s StepRecord) MarshalJSON() ([]byte, error) {
	var errText *string
	if s.Error != "" {
		errText = &s.Error
	}
	return json.Marshal(struct {
		NodeID      string         `json:"nodeId"`
		NodeType    NodeType       `json:"nodeType"`
		Title       string         `json:"title"`
		Status      StepStatus     `json:"status"`
		StartedAt   time.Time      `json:"startedAt"`
		CompletedAt *time.Time     `json:"completedAt"`
		Duration    *int64         `json:"duration"`
		Output      map[string]any `json:"output"`
		Error       *string        `json:"error"`
	}{s.NodeID, s.NodeType, s.Title, s.Status, s.StartedAt, s.CompletedAt, s.Duration, s.Output, errText})
}

func (s StepRecord) clone() StepRecord {
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	if s.Duration != nil {
		d := *s.Duration
		s.Duration = &d
	}
	if s.Output != nil {
		s.Output = cloneValue(s.Output).(map[string]any)
	}
	return s
}

// RunResult is the aggregate outcome of a run.
type RunResult struct {
	RunID         string       `json:"runId"`
	Success       bool         `json:"success"`
	Error         string       `json:"error,omitempty"`
	Validation    *Result      `json:"validation,omitempty"`
	StartedAt     time.Time    `json:"startedAt"`
	CompletedAt   time.Time    `json:"completedAt"`
	TotalDuration int64        `json:"totalDuration"` // milliseconds
	Steps         []StepRecord `json:"steps"`
}

// StepFunc receives a copy of the current step record on every step state
// transition (running, then completed or error). Step N+1 never begins
// before the callback for step N's terminal transition has returned.
type StepFunc func(StepRecord)

// Runner simulates workflow runs.
//
// A Runner holds configuration only; graph state is passed to Run and
// copied before use, so edits to the caller's workflow during a run cannot
// interfere with it. The state reported by State tracks the most recent
// run. Callers must not start overlapping runs on the same Runner when
// they rely on State.
type Runner struct {
	mu    sync.Mutex
	state RunState

	validator Validator
	catalog   Catalog
	decider   ApprovalDecider
	policy    DecisionPolicy
	minDelay  time.Duration
	maxDelay  time.Duration
	now       func() time.Time
	emitter   emit.Emitter
	metrics   *PrometheusMetrics
	logger    *slog.Logger
	newRunID  func() string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) (*Runner, error) {
	cfg := runnerConfig{
		decider:  AlwaysApprove,
		minDelay: DefaultMinStepDelay,
		maxDelay: DefaultMaxStepDelay,
		clock:    time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, &WorkflowError{Message: err.Error(), Code: "INVALID_OPTION", Err: err}
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Runner{
		state:     StateIdle,
		validator: Validator{Catalog: cfg.catalog},
		catalog:   cfg.catalog,
		decider:   cfg.decider,
		policy:    cfg.policy,
		minDelay:  cfg.minDelay,
		maxDelay:  cfg.maxDelay,
		now:       cfg.clock,
		emitter:   cfg.emitter,
		metrics:   cfg.metrics,
		logger:    cfg.logger.With("component", "runner"),
		newRunID:  cfg.newRunID,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// State returns the state of the most recent run.
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// Run validates the graph, resolves the execution order and executes every
// node in turn, reporting each step transition to onStep (which may be nil).
//
// An invalid graph is refused: the result carries the validation issues
// and no step runs. Otherwise steps execute strictly one after another and
// the first failing step aborts the rest of the run. Cancelling ctx marks
// the in-flight step as failed with the context error.
//
// Run never returns an error; every failure is captured in the result.
func (r *Runner) Run(ctx context.Context, nodes []Node, edges []Edge, onStep StepFunc) RunResult {
	snap := Snapshot{Nodes: nodes, Edges: edges}.Clone()

	runID := r.newRunID()
	started := r.now()
	result := RunResult{RunID: runID, StartedAt: started, Steps: []StepRecord{}}
	log := r.logger.With("run_id", runID)

	r.setState(StateRunning)
	r.metrics.RunStarted()
	r.emitter.Emit(emit.Event{RunID: runID, Msg: emit.MsgRunStarted, Meta: map[string]interface{}{"nodes": len(snap.Nodes)}})
	log.Debug("run started", "nodes", len(snap.Nodes), "edges", len(snap.Edges))

	validation := r.validator.Validate(ctx, snap.Nodes, snap.Edges)
	r.metrics.RecordValidation(validation)
	if !validation.IsValid {
		result.Error = ErrValidationFailed.Error()
		result.Validation = &validation
		r.emitter.Emit(emit.Event{
			RunID: runID,
			Msg:   emit.MsgValidationFailed,
			Meta:  map[string]interface{}{"errors": len(validation.Errors)},
		})
		log.Info("run refused", "errors", len(validation.Errors), "summary", validation.Summary())
		return r.finish(result, OutcomeInvalid)
	}

	order, err := ResolveOrder(snap.Nodes, snap.Edges)
	if err != nil {
		result.Error = err.Error()
		log.Error("execution order", "error", err)
		return r.finish(result, OutcomeFailed)
	}

	aborted := false
	for i, node := range order {
		step := StepRecord{
			NodeID:    node.ID,
			NodeType:  node.Type,
			Title:     node.Title(),
			Status:    StepRunning,
			StartedAt: r.now(),
		}
		r.deliver(runID, i+1, step, onStep, emit.MsgStepRunning)

		output, err := r.execute(ctx, node)

		completed := r.now()
		duration := completed.Sub(step.StartedAt).Milliseconds()
		step.CompletedAt = &completed
		step.Duration = &duration

		if err != nil {
			step.Status = StepError
			step.Error = stepMessage(err)
		} else {
			step.Status = StepCompleted
			step.Output = output
		}
		result.Steps = append(result.Steps, step.clone())
		r.metrics.RecordStep(node.Type, step.Status, completed.Sub(step.StartedAt))

		if err != nil {
			r.deliver(runID, i+1, step, onStep, emit.MsgStepError)
			log.Info("step failed", "node_id", node.ID, "node_type", node.Type, "error", err)
			result.Error = step.Error
			aborted = true
			break
		}
		r.deliver(runID, i+1, step, onStep, emit.MsgStepCompleted)
		log.Debug("step completed", "node_id", node.ID, "node_type", node.Type, "duration_ms", duration)
	}

	result.Success = !aborted
	for _, s := range result.Steps {
		if s.Status != StepCompleted {
			result.Success = false
		}
	}

	outcome := OutcomeCompleted
	switch {
	case ctx.Err() != nil && aborted:
		outcome = OutcomeCancelled
	case !result.Success:
		outcome = OutcomeFailed
	}
	return r.finish(result, outcome)
}

// stepMessage returns the text recorded for a failed step. The record
// already names the node, so a NodeError contributes only its message.
func stepMessage(err error) string {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Message
	}
	return err.Error()
}

// finish stamps the completion time, records the outcome and moves the
// runner to its terminal state.
func (r *Runner) finish(result RunResult, outcome string) RunResult {
	result.CompletedAt = r.now()
	result.TotalDuration = result.CompletedAt.Sub(result.StartedAt).Milliseconds()

	msg := emit.MsgRunCompleted
	state := StateCompleted
	if !result.Success {
		msg = emit.MsgRunFailed
		state = StateFailed
	}
	meta := map[string]interface{}{
		"duration_ms": result.TotalDuration,
		"steps":       len(result.Steps),
		"outcome":     outcome,
	}
	if result.Error != "" {
		meta["error"] = result.Error
	}
	r.emitter.Emit(emit.Event{RunID: result.RunID, Msg: msg, Meta: meta})
	r.metrics.RecordRun(outcome)
	r.logger.Info("run finished", "run_id", result.RunID, "outcome", outcome,
		"steps", len(result.Steps), "duration_ms", result.TotalDuration)

	r.setState(state)
	return result
}

// deliver emits the progress event for a step transition and hands a copy
// of the record to the callback.
func (r *Runner) deliver(runID string, stepNum int, step StepRecord, onStep StepFunc, msg string) {
	meta := map[string]interface{}{"title": step.Title}
	if step.Duration != nil {
		meta["duration_ms"] = *step.Duration
	}
	if step.Error != "" {
		meta["error"] = step.Error
	}
	r.emitter.Emit(emit.Event{
		RunID:    runID,
		Step:     stepNum,
		NodeID:   step.NodeID,
		NodeType: string(step.NodeType),
		Msg:      msg,
		Meta:     meta,
	})
	if onStep != nil {
		onStep(step.clone())
	}
}

// execute waits the simulated delay and runs the node's stub action.
func (r *Runner) execute(ctx context.Context, node Node) (map[string]any, error) {
	if err := sleep(ctx, r.delay()); err != nil {
		return nil, err
	}

	switch node.Type {
	case NodeStart:
		metadata := node.Data["metadata"]
		if metadata == nil {
			metadata = []any{}
		}
		return map[string]any{
			"message":  "Workflow started",
			"metadata": metadata,
		}, nil

	case NodeTask:
		assignee := node.Data.String("assignee")
		return map[string]any{
			"message":     fmt.Sprintf("Task \"%s\" completed", node.Data.String("title")),
			"assignee":    assignee,
			"completedBy": assignee,
			"completedAt": r.now().UTC().Format(TimestampFormat),
		}, nil

	case NodeApproval:
		role := node.Data.String("approverRole")
		decision, err := r.decide(ctx, node)
		if err != nil {
			return nil, &NodeError{
				Message: "approval decision failed: " + err.Error(),
				Code:    "APPROVAL_ERROR",
				NodeID:  node.ID,
				Cause:   err,
			}
		}
		if !decision.Approved {
			return nil, fmt.Errorf("Approval rejected by %s", role)
		}
		output := map[string]any{
			"message":    "Approved by " + role,
			"approver":   role,
			"approvedAt": r.now().UTC().Format(TimestampFormat),
		}
		if decision.Reason != "" {
			output["reason"] = decision.Reason
		}
		return output, nil

	case NodeAutomated:
		actionID := node.Data.String("actionId")
		label, err := r.automationLabel(ctx, actionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"message":    "Executed: " + label,
			"action":     actionID,
			"parameters": node.Data["parameters"],
			"result":     "Success",
		}, nil

	case NodeEnd:
		message := node.Data.String("message")
		if message == "" {
			message = "Workflow completed"
		}
		return map[string]any{
			"message":     message,
			"showSummary": node.Data.Bool("showSummary"),
		}, nil
	}

	return map[string]any{"message": "Step completed"}, nil
}

// automationLabel resolves actionID to its catalog label. Without a catalog
// the raw id is used.
func (r *Runner) automationLabel(ctx context.Context, actionID string) (string, error) {
	if r.catalog == nil {
		return actionID, nil
	}
	automation, ok, err := r.catalog.Lookup(ctx, actionID)
	if err != nil {
		return "", fmt.Errorf("automation lookup %q: %w", actionID, err)
	}
	if !ok {
		return "", fmt.Errorf("unknown automation %q", actionID)
	}
	return automation.Label, nil
}

// delay picks a duration uniformly in [minDelay, maxDelay].
func (r *Runner) delay() time.Duration {
	span := r.maxDelay - r.minDelay
	if span <= 0 {
		return r.minDelay
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.minDelay + time.Duration(r.rng.Int63n(int64(span)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TimestampFormat is the ISO-8601 layout, with millisecond precision, used
// for timestamps inside step outputs and documents.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

package emit

// Event messages emitted by the simulation runner.
const (
	MsgRunStarted       = "run_started"
	MsgValidationFailed = "validation_failed"
	MsgStepRunning      = "step_running"
	MsgStepCompleted    = "step_completed"
	MsgStepError        = "step_error"
	MsgRunCompleted     = "run_completed"
	MsgRunFailed        = "run_failed"
)

// Event is a progress event emitted while a workflow run is simulated.
//
// Run-level events (run_started, run_completed, run_failed,
// validation_failed) carry Step 0 and an empty NodeID. Step events carry the
// 1-indexed position of the node in the execution order.
type Event struct {
	// RunID identifies the simulation run that emitted this event.
	RunID string

	// Step is the 1-indexed step number, or zero for run-level events.
	Step int

	// NodeID and NodeType identify the node being executed.
	NodeID   string
	NodeType string

	// Msg is one of the Msg* constants.
	Msg string

	// Meta contains additional structured data. Common keys:
	//   - "duration_ms": step or run duration in milliseconds
	//   - "error": error message for failed steps and runs
	//   - "title": node title
	//   - "steps": number of recorded steps (run-level)
	Meta map[string]interface{}
}

// IsError reports whether the event describes a failure.
func (e Event) IsError() bool {
	_, ok := e.Meta["error"]
	return ok || e.Msg == MsgStepError || e.Msg == MsgRunFailed || e.Msg == MsgValidationFailed
}

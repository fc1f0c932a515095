// Package emit delivers simulation progress events to pluggable backends.
package emit

// Emitter receives progress events from workflow runs.
//
// Implementations should be:
//   - Non-blocking: the runner waits for Emit to return before the next step
//   - Thread-safe: one emitter may be shared by concurrent runs
//   - Resilient: Emit never panics and never fails the run
type Emitter interface {
	// Emit sends an event to the configured backend.
	Emit(event Event)
}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []Emitter

// Emit forwards event to every non-nil emitter.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}

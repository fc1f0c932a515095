package emit

import "testing"

func TestMultiEmitter_FansOutInOrder(t *testing.T) {
	first := NewBufferedEmitter()
	second := NewBufferedEmitter()
	multi := MultiEmitter{first, nil, second}

	multi.Emit(Event{RunID: "run-1", Msg: MsgRunStarted})
	multi.Emit(Event{RunID: "run-1", Step: 1, NodeID: "start-1", Msg: MsgStepRunning})

	for name, b := range map[string]*BufferedEmitter{"first": first, "second": second} {
		history := b.GetHistory("run-1")
		if len(history) != 2 {
			t.Fatalf("%s: expected 2 events, got %d", name, len(history))
		}
		if history[0].Msg != MsgRunStarted || history[1].Msg != MsgStepRunning {
			t.Errorf("%s: unexpected order: %+v", name, history)
		}
	}
}

func TestEvent_IsError(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"completed step", Event{Msg: MsgStepCompleted}, false},
		{"error step", Event{Msg: MsgStepError}, true},
		{"failed run", Event{Msg: MsgRunFailed}, true},
		{"validation failed", Event{Msg: MsgValidationFailed}, true},
		{"error meta", Event{Msg: MsgStepCompleted, Meta: map[string]interface{}{"error": "boom"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsError(); got != tt.want {
				t.Errorf("IsError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullEmitter(t *testing.T) {
	var e Emitter = NewNullEmitter()
	// Must not panic, with or without meta.
	e.Emit(Event{})
	e.Emit(Event{RunID: "run-1", Meta: map[string]interface{}{"error": "x"}})
}

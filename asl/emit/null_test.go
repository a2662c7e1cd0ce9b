package emit

import "testing"

func TestNullEmitterDiscardsEvents(t *testing.T) {
	e := NewNullEmitter()

	e.Emit(Event{ExecutionID: "exec-1", StateName: "Fetch", Msg: "state_enter"})
	e.Emit(Event{ExecutionID: "exec-1", StateName: "Fetch", Msg: "state_exit", Meta: nil})

	if err := e.EmitBatch(nil, []Event{{ExecutionID: "exec-1", Msg: "retry"}}); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	if err := e.Flush(nil); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
}

func TestNullEmitterImplementsEmitter(t *testing.T) {
	var _ Emitter = NewNullEmitter()
}

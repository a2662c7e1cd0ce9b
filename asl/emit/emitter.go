package emit

import "context"

// Emitter receives observability events from a running workflow. Emit must
// not block execution and must not panic; a failing backend should log
// internally and drop the event rather than propagate an error up through
// the engine.
type Emitter interface {
	// Emit sends a single event.
	Emit(event Event)

	// EmitBatch sends multiple events, preserving their relative order.
	// Used by buffered emitters flushing on an interval or at run end.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until every buffered event has been delivered or ctx
	// expires. Safe to call more than once.
	Flush(ctx context.Context) error
}

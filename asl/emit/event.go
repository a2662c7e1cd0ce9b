// Package emit provides pluggable observability event emission for
// workflow execution, independent of the Outcome.Trace history a host
// reads back through the Runner (which is authoritative; emission is a
// side channel for logging/tracing/metrics backends).
package emit

// Event is one observability event raised during a state's lifecycle.
type Event struct {
	// ExecutionID identifies the workflow execution that raised this event.
	ExecutionID string

	// StateName identifies which state raised the event. Empty for
	// execution-level events (run start/end).
	StateName string

	// Msg names the event kind, e.g. "state_enter", "state_exit", "retry",
	// "suspend", "resume", "run_succeeded", "run_failed".
	Msg string

	// Meta carries event-specific structured detail. Common keys:
	// "duration_ms", "error_code", "cause", "tokens", "cost_usd",
	// "resume_token", "attempt".
	Meta map[string]any
}

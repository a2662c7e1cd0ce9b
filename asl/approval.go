package asl

import "context"

// ApprovalRequest is emitted to the approval collaborator on entering an
// Approval state (§3.1, §4.8, §6.2).
type ApprovalRequest struct {
	ExecutionID    string
	StateName      string
	Prompt         Value
	Options        []string
	TimeoutSeconds float64
	Escalation     *EscalationSpec
	EditableFields []string
}

// ApprovalDecision is what the host eventually delivers for a pending
// approval (§3.1, §4.8), either from a real human decision or synthesized by
// the collaborator on timeout per OnTimeout.
type ApprovalDecision struct {
	Option        string
	Approver      string
	Comment       string
	EditedFields  map[string]Value
	TimedOut      bool
}

// ApprovalCollaborator is the host-provided transport for human-in-the-loop
// decisions (§6.2). The engine never owns wall-clock timeout timers itself:
// Await is expected to return a synthetic timed-out ApprovalDecision when its
// own timer or escalation schedule expires, rather than the engine polling.
type ApprovalCollaborator interface {
	// Emit registers request and returns an opaque resume token the engine
	// hands back to its caller inside a StepSuspend result.
	Emit(ctx context.Context, request ApprovalRequest) (resumeToken string, err error)

	// Await blocks until a decision is delivered for token, or until the
	// collaborator's own timeout/escalation logic produces a synthetic
	// decision with TimedOut set.
	Await(ctx context.Context, resumeToken string) (ApprovalDecision, error)

	// Cancel releases any resources associated with resumeToken (§5
	// cancellation) without delivering a decision.
	Cancel(resumeToken string) error
}

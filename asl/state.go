package asl

import "context"

// StepStatus discriminates the StepResult union (§3.1).
type StepStatus int

const (
	StepNext StepStatus = iota
	StepEnd
	StepFail
	StepSuspend
)

// SuspendReason discriminates why a state yielded StepSuspend (§3.1, §4.8, §4.10).
type SuspendReason int

const (
	SuspendApproval SuspendReason = iota
	SuspendCheckpoint
)

// StepResult is the tagged union every state's Step returns (§3.1).
type StepResult struct {
	Status StepStatus

	Output    Value
	NextState string
	Tokens    int64
	Cost      float64

	ErrorCode string
	Cause     string

	SuspendReason SuspendReason
	ResumeToken   string
	Payload       Value
}

// State is the single entry point every state variant implements (§9
// "Polymorphic states"): dispatch by variant, not by subtype inheritance.
type State interface {
	// Step executes this state once against input and the shared execution
	// context, returning the outcome or an error for states whose failures
	// are not mediated by a Retry/Catch policy engine (Choice, Pass, Wait,
	// Succeed, Fail, Approval's own plumbing, Checkpoint). Task, Map, and
	// Parallel run their bodies inside the retry/catch engine (§4.9): a
	// caught error becomes a StepNext routed to the Catch target, and an
	// uncaught one is returned from Step as its *WorkflowError.
	Step(ctx context.Context, input Value, ec *ExecutionContext) (StepResult, error)
}

// registryEnv bundles the collaborators every stateful state variant needs:
// the agent registry (component J), the approval collaborator (§6.2), and
// the checkpoint store (§6.3). Choice/Pass/Wait/Succeed/Fail ignore it. Costs
// is optional host-side cost attribution (asl/cost.go); nil disables it.
type registryEnv struct {
	Agents      AgentRegistry
	Approvals   ApprovalCollaborator
	Checkpoints CheckpointStore
	Costs       *CostEstimator
}

package asl

import "errors"

// Error codes form a flat namespace (§7). Agent.* codes are reserved for
// agent-originated errors propagated verbatim; an agent error that carries no
// code is normalized to CodeTaskFailed.
const (
	CodeAll                    = "States.ALL"
	CodeTaskFailed             = "States.TaskFailed"
	CodeTimeout                = "States.Timeout"
	CodeCancelled              = "States.Cancelled"
	CodePermissions            = "States.Permissions"
	CodeRateLimitExceeded      = "States.RateLimitExceeded"
	CodeBudgetExceeded         = "States.BudgetExceeded"
	CodeNoChoiceMatched        = "States.NoChoiceMatched"
	CodeParameterPathFailure   = "States.ParameterPathFailure"
	CodeResultPathMatchFailure = "States.ResultPathMatchFailure"
	CodeIntrinsicFailure       = "States.IntrinsicFailure"
	CodeApprovalTimeout        = "States.ApprovalTimeout"
	CodeMapFailed              = "States.MapFailed"
	CodeParallelFailed         = "States.ParallelFailed"
)

// WorkflowError is the engine's representation of a thrown error (§3.1):
// a flat {code, cause} pair, never recursive.
type WorkflowError struct {
	Code  string
	Cause string
}

func (e *WorkflowError) Error() string {
	if e.Cause == "" {
		return e.Code
	}
	return e.Code + ": " + e.Cause
}

// AsWorkflowError normalizes any error into a WorkflowError. An error that is
// or wraps a *WorkflowError, or anything with an ErrorCode method (such as
// *AgentError or *EngineError), keeps its code whatever that code is;
// every other error becomes States.TaskFailed.
func AsWorkflowError(err error) *WorkflowError {
	if err == nil {
		return nil
	}
	var we *WorkflowError
	if errors.As(err, &we) {
		return we
	}
	var ce interface{ ErrorCode() string }
	if errors.As(err, &ce) {
		return &WorkflowError{Code: ce.ErrorCode(), Cause: err.Error()}
	}
	return &WorkflowError{Code: CodeTaskFailed, Cause: err.Error()}
}

// EngineError signals a configuration, validation, or internal-plumbing
// failure distinct from a workflow Error (§3.1): invalid definitions, broken
// path expressions, structural write conflicts. It always carries a
// WorkflowError-shaped Code so it can be matched by Retry/Catch when raised
// during state execution (e.g. CodeParameterPathFailure).
type EngineError struct {
	Code    string
	Message string
}

func (e *EngineError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// ErrorCode implements the optional interface AsWorkflowError uses to
// recover a workflow error code from an EngineError.
func (e *EngineError) ErrorCode() string { return e.Code }

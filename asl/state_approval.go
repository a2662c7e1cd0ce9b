package asl

import "context"

// approvalState implements Approval (§4.8): a suspended human-in-the-loop
// gate. Step handles entry (emit + suspend); resume handles the decision
// once the host delivers it.
type approvalState struct {
	name        string
	spec        StateSpec
	approvals   ApprovalCollaborator
	checkpoints CheckpointStore
}

func (s *approvalState) Step(ctx context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	var prompt Value
	if s.spec.Prompt != nil {
		prompt, err = resolveParameters(*s.spec.Prompt, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
	}

	if s.approvals == nil {
		return StepResult{}, &EngineError{Code: CodeTaskFailed, Message: "Approval state requires an approval collaborator"}
	}

	token, err := s.approvals.Emit(ctx, ApprovalRequest{
		ExecutionID:    ec.ExecutionID,
		StateName:      s.name,
		Prompt:         prompt,
		Options:        s.spec.Options,
		TimeoutSeconds: s.spec.Timeout,
		Escalation:     s.spec.Escalation,
		EditableFields: s.spec.EditableFields,
	})
	if err != nil {
		return StepResult{}, AsWorkflowError(err)
	}

	if s.checkpoints != nil {
		_ = s.checkpoints.Put(token, Checkpoint{
			Name:             token,
			ExecutionID:      ec.ExecutionID,
			CurrentStateName: s.name,
			State:            input,
			Trace:            ec.Trace,
			Usage:            ec.Usage,
			CreatedAt:        ec.Clock.Now(),
		})
	}

	ec.record(TraceSuspend, s.name, EmptyObject().Set("Reason", String("Approval")).Set("Token", String(token)))

	return StepResult{
		Status:        StepSuspend,
		SuspendReason: SuspendApproval,
		ResumeToken:   token,
		Payload:       EmptyObject().Set("_state", String(s.name)),
		Output:        input,
	}, nil
}

// resume applies a delivered (or timeout-synthesized) ApprovalDecision
// (§4.8 "On resume" / "Timeout behavior") and routes to the next state.
func (s *approvalState) resume(ctx context.Context, doc Value, ec *ExecutionContext, decisionValue Value) (StepResult, error) {
	decision, err := decodeApprovalDecision(decisionValue)
	if err != nil {
		return StepResult{}, err
	}
	ec.record(TraceResume, s.name, EmptyObject().Set("TimedOut", Bool(decision.TimedOut)))

	if decision.TimedOut {
		return s.handleTimeout(ctx, doc, ec)
	}

	return s.applyDecision(doc, ec, decision)
}

func (s *approvalState) applyDecision(doc Value, ec *ExecutionContext, decision ApprovalDecision) (StepResult, error) {
	if !containsOption(s.spec.Options, decision.Option) {
		return StepResult{}, &EngineError{Code: CodeTaskFailed, Message: "approval decision option not in Options: " + decision.Option}
	}
	ec.Metrics.recordApproval(s.name, decision.Option)

	for path, v := range decision.EditedFields {
		if !containsString(s.spec.EditableFields, path) {
			continue
		}
		updated, err := pathWrite(path, doc, v)
		if err != nil {
			return StepResult{}, err
		}
		doc = updated
	}

	decisionDoc := EmptyObject().
		Set("option", String(decision.Option)).
		Set("approver", String(decision.Approver)).
		Set("comment", String(decision.Comment))

	merged, err := applyResultPath(s.spec.ResultPath, doc, decisionDoc)
	if err != nil {
		return StepResult{}, err
	}

	ctxObj := ec.contextObject(s.name)
	if len(s.spec.Choices) > 0 {
		next, ok, err := evalChoices(s.spec.Choices, s.spec.Default, s.spec.Default != "", merged, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
		if !ok {
			return StepResult{}, &EngineError{Code: CodeNoChoiceMatched, Message: "no Choice rule matched and no Default set"}
		}
		return StepResult{Status: StepNext, Output: merged, NextState: next}, nil
	}

	if s.spec.End {
		return StepResult{Status: StepEnd, Output: merged}, nil
	}
	return StepResult{Status: StepNext, Output: merged, NextState: s.spec.Next}, nil
}

// handleTimeout applies OnTimeout (§4.8 "Timeout behavior"). AutoApprove and
// AutoReject synthesize a decision; Escalate is the collaborator's
// responsibility to retry (a timeout reaching here after escalation means
// escalation is exhausted, so it degrades to Fail); Fail and the unset
// default (when no Default transition exists) raise States.ApprovalTimeout.
func (s *approvalState) handleTimeout(ctx context.Context, doc Value, ec *ExecutionContext) (StepResult, error) {
	ec.Metrics.recordApproval(s.name, "timeout")
	onTimeout := s.spec.OnTimeout
	if onTimeout == "" {
		if s.spec.Default != "" {
			return StepResult{Status: StepNext, Output: doc, NextState: s.spec.Default}, nil
		}
		onTimeout = "Fail"
	}

	switch onTimeout {
	case "AutoApprove":
		return s.applyDecision(doc, ec, ApprovalDecision{Option: "approve", Approver: "system:timeout"})
	case "AutoReject":
		return s.applyDecision(doc, ec, ApprovalDecision{Option: "reject", Approver: "system:timeout"})
	case "Escalate", "Fail":
		return StepResult{}, &EngineError{Code: CodeApprovalTimeout, Message: "approval timed out"}
	default:
		return StepResult{}, &EngineError{Code: CodeApprovalTimeout, Message: "approval timed out (unknown OnTimeout: " + onTimeout + ")"}
	}
}

func decodeApprovalDecision(v Value) (ApprovalDecision, error) {
	if !v.IsObject() {
		return ApprovalDecision{}, &EngineError{Code: CodeTaskFailed, Message: "approval resume payload must be an object"}
	}
	d := ApprovalDecision{}
	if opt, ok := v.Get("option"); ok {
		d.Option = opt.Str()
	}
	if approver, ok := v.Get("approver"); ok {
		d.Approver = approver.Str()
	}
	if comment, ok := v.Get("comment"); ok {
		d.Comment = comment.Str()
	}
	if timedOut, ok := v.Get("timedOut"); ok {
		d.TimedOut = timedOut.BoolValue()
	}
	if edited, ok := v.Get("editedFields"); ok && edited.IsObject() {
		d.EditedFields = make(map[string]Value, edited.Len())
		for _, k := range edited.Keys() {
			val, _ := edited.Get(k)
			d.EditedFields[k] = val
		}
	}
	return d, nil
}

func containsOption(options []string, opt string) bool {
	for _, o := range options {
		if o == opt {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

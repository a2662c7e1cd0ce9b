package asl

import "context"

// checkpointState implements Checkpoint (§4.10): writes a durable snapshot
// of the execution to the checkpoint store, then continues to Next (and
// optionally also suspends so the host can persist and exit).
type checkpointState struct {
	name        string
	spec        StateSpec
	checkpoints CheckpointStore
}

func (s *checkpointState) Step(_ context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	snapshot := input
	if s.spec.DataPath != "" {
		snapshot, err = mustPathRead(s.spec.DataPath, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
	}

	id := s.spec.Name
	if s.spec.CheckpointIdPath != "" {
		v, err := mustPathRead(s.spec.CheckpointIdPath, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
		id = v.Str()
	}
	if id == "" {
		id = ec.IDs.NewID()
	}

	ttl, err := parseTTL(s.spec.TTL)
	if err != nil {
		return StepResult{}, &EngineError{Code: CodeTaskFailed, Message: err.Error()}
	}

	if s.checkpoints == nil {
		return StepResult{}, &EngineError{Code: CodeTaskFailed, Message: "Checkpoint state requires a checkpoint store"}
	}

	if err := s.checkpoints.Put(id, Checkpoint{
		Name:             id,
		ExecutionID:      ec.ExecutionID,
		CurrentStateName: s.spec.Next,
		State:            snapshot,
		Trace:            ec.Trace,
		Usage:            ec.Usage,
		CreatedAt:        ec.Clock.Now(),
		TTL:              ttl,
	}); err != nil {
		return StepResult{}, &EngineError{Code: CodeTaskFailed, Message: "checkpoint write failed: " + err.Error()}
	}

	if s.spec.SuspendAfter {
		ec.record(TraceSuspend, s.name, EmptyObject().Set("Reason", String("Checkpoint")).Set("Token", String(id)))
		return StepResult{
			Status:        StepSuspend,
			SuspendReason: SuspendCheckpoint,
			ResumeToken:   id,
			Payload:       EmptyObject().Set("_state", String(s.name)),
			Output:        input,
		}, nil
	}

	return StepResult{Status: StepNext, Output: input, NextState: s.spec.Next}, nil
}

package asl

import "context"

// passState implements Pass (§4.5): pure data-plumbing, semantically a Task
// whose agent returns Result verbatim (or the input, if Result is absent).
type passState struct {
	name string
	spec StateSpec
}

func (s *passState) Step(_ context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	var result Value
	switch {
	case s.spec.Parameters != nil:
		result, err = resolveParameters(*s.spec.Parameters, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
	case s.spec.Result != nil:
		result = *s.spec.Result
	default:
		result = input
	}

	merged, err := applyResultPath(s.spec.ResultPath, input, result)
	if err != nil {
		return StepResult{}, err
	}

	output, err := applyOutputPath(s.spec.OutputPath, merged, ctxObj)
	if err != nil {
		return StepResult{}, err
	}

	if s.spec.End {
		return StepResult{Status: StepEnd, Output: output}, nil
	}
	return StepResult{Status: StepNext, Output: output, NextState: s.spec.Next}, nil
}

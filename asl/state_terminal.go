package asl

import "context"

// succeedState implements Succeed (§4.7): terminal, output is the current
// input after InputPath/OutputPath.
type succeedState struct {
	name string
	spec StateSpec
}

func (s *succeedState) Step(_ context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	output, err := applyOutputPath(s.spec.OutputPath, input, ctxObj)
	if err != nil {
		return StepResult{}, err
	}

	return StepResult{Status: StepEnd, Output: output}, nil
}

// failState implements Fail (§4.7): terminal, output annotated with
// {Error, Cause}, sourced either from literal Error/Cause or from
// ErrorPath/CausePath in the document.
type failState struct {
	name string
	spec StateSpec
}

func (s *failState) Step(_ context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	code := s.spec.Error
	if s.spec.ErrorPath != "" {
		v, err := mustPathRead(s.spec.ErrorPath, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
		code = v.Str()
	}
	cause := s.spec.Cause
	if s.spec.CausePath != "" {
		v, err := mustPathRead(s.spec.CausePath, input, ctxObj)
		if err != nil {
			return StepResult{}, err
		}
		cause = v.Str()
	}

	return StepResult{Status: StepFail, Output: input, ErrorCode: code, Cause: cause}, nil
}

package asl

import "context"

// choiceState implements Choice (§4.2): evaluates Choices top-to-bottom,
// routes to the first match's Next, falls back to Default, or raises
// States.NoChoiceMatched. Choice never calls agents, consumes no tokens, and
// passes input through unchanged aside from InputPath/OutputPath.
type choiceState struct {
	name string
	spec StateSpec
}

func (s *choiceState) Step(_ context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	next, ok, err := evalChoices(s.spec.Choices, s.spec.Default, s.spec.Default != "", input, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	if !ok {
		return StepResult{}, &EngineError{Code: CodeNoChoiceMatched, Message: "no Choice rule matched and no Default set"}
	}
	ec.record(TraceChoiceMatch, s.name, EmptyObject().Set("Next", String(next)))

	output, err := applyOutputPath(s.spec.OutputPath, input, ctxObj)
	if err != nil {
		return StepResult{}, err
	}

	return StepResult{Status: StepNext, Output: output, NextState: next}, nil
}

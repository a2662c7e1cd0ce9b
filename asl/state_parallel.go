package asl

import (
	"context"
	"fmt"
)

// parallelState implements Parallel (§4.4): runs each Branches[i] as an
// independent sub-execution seeded with the same input; if any branch fails
// uncaught, the Parallel state fails and sibling branches are cancelled.
type parallelState struct {
	name     string
	spec     StateSpec
	branches []*compiledMachine
}

func (s *parallelState) Step(ctx context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	body := func(ctx context.Context, attempt int) (Value, error) {
		return s.runBranches(ctx, input, ec)
	}

	result, caught, we := runRetryCatch(ctx, ec, s.name, input, s.spec.Retry, s.spec.Catch, body)
	if we != nil {
		return StepResult{}, we
	}
	if caught != nil {
		return *caught, nil
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

func (s *parallelState) runBranches(ctx context.Context, input Value, ec *ExecutionContext) (Value, error) {
	n := len(s.branches)

	results, errs := runBounded(ctx, n, 0, true, func(ctx context.Context, i int) (Value, error) {
		childID := fmt.Sprintf("%s/%s/branch%d", ec.ExecutionID, s.name, i)
		childEC := childExecutionContext(ec, childID)

		outcome := runMachine(ctx, s.branches[i], s.branches[i].startAt, DeepCopy(input), childEC)
		ec.Usage.Add(childEC.Usage.TotalTokens, childEC.Usage.TotalCostUSD)

		switch outcome.status {
		case StatusSucceeded:
			return outcome.output, nil
		case StatusFailed:
			code, cause := errorCodeAndCause(outcome.output)
			return Value{}, &WorkflowError{Code: code, Cause: cause}
		default:
			return Value{}, &WorkflowError{Code: CodeTaskFailed, Cause: "branch suspended, which Parallel does not support"}
		}
	})

	var first *WorkflowError
	for i, e := range errs {
		if e == nil {
			continue
		}
		we := AsWorkflowError(e)
		if we.Code == CodeCancelled {
			ec.record(TraceError, fmt.Sprintf("%s/branch%d", s.name, i), errorValue(we))
			continue
		}
		if first == nil {
			first = we
		}
	}
	if first != nil {
		ec.Metrics.recordMapParallelFailure(s.name, CodeParallelFailed)
		return Value{}, &WorkflowError{Code: CodeParallelFailed, Cause: first.Error()}
	}

	return Array(results...), nil
}

package asl

import (
	"context"
	"fmt"
)

// mapState implements Map (§4.3): iterates a sub-definition over the array
// at ItemsPath with bounded concurrency, collecting results by index
// regardless of completion order, with its own Retry/Catch wrapping the
// whole iteration (§4.9).
type mapState struct {
	name     string
	spec     StateSpec
	iterator *compiledMachine
}

func (s *mapState) Step(ctx context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	items, err := mustPathRead(s.spec.ItemsPath, input, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	if !items.IsArray() {
		return StepResult{}, &EngineError{Code: CodeParameterPathFailure, Message: "ItemsPath did not resolve to an array"}
	}

	body := func(ctx context.Context, attempt int) (Value, error) {
		return s.runIterations(ctx, input, items, ctxObj, ec)
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

// runIterations runs every item's sub-execution and aggregates the array.
// Failures are counted against ToleratedFailureCount/Percentage (§4.3); if
// the tolerance is exceeded the whole Map body fails with States.MapFailed,
// carrying the partial results on the error's Cause.
func (s *mapState) runIterations(ctx context.Context, originalInput, items, outerCtxObj Value, ec *ExecutionContext) (Value, error) {
	n := items.Len()
	elems := items.Items()

	results, errs := runBounded(ctx, n, s.spec.MaxConcurrency, false, func(ctx context.Context, i int) (Value, error) {
		return s.runOneIteration(ctx, originalInput, elems[i], i, outerCtxObj, ec)
	})

	failures := 0
	out := make([]Value, n)
	for i, v := range results {
		if errs[i] != nil {
			failures++
			out[i] = errorValue(AsWorkflowError(errs[i]))
			continue
		}
		out[i] = v
	}
	if exceedsTolerance(failures, n, s.spec.ToleratedFailureCount, s.spec.ToleratedFailurePercentage) {
		ec.Metrics.recordMapParallelFailure(s.name, CodeMapFailed)
		return Value{}, &WorkflowError{Code: CodeMapFailed, Cause: fmt.Sprintf("%d of %d iterations failed; partial results: %s", failures, n, Array(out...).String())}
	}
	return Array(out...), nil
}

func (s *mapState) runOneIteration(ctx context.Context, originalInput, item Value, index int, outerCtxObj Value, ec *ExecutionContext) (Value, error) {
	iterCtxObj := ec.contextObjectForIteration(s.name, item, index)

	var iterInput Value
	if s.spec.ItemSelector != nil {
		resolved, err := resolveParameters(*s.spec.ItemSelector, originalInput, iterCtxObj)
		if err != nil {
			return Value{}, err
		}
		iterInput = resolved
	} else {
		iterInput = item.AsObject()
	}

	childID := fmt.Sprintf("%s/%s/%d", ec.ExecutionID, s.name, index)
	childEC := childExecutionContext(ec, childID)

	outcome := runMachine(ctx, s.iterator, s.iterator.startAt, DeepCopy(iterInput), childEC)

	ec.Usage.Add(childEC.Usage.TotalTokens, childEC.Usage.TotalCostUSD)

	switch outcome.status {
	case StatusSucceeded:
		return outcome.output, nil
	case StatusFailed:
		code, cause := errorCodeAndCause(outcome.output)
		return Value{}, &WorkflowError{Code: code, Cause: cause}
	default:
		return Value{}, &WorkflowError{Code: CodeTaskFailed, Cause: "iteration suspended, which Map does not support"}
	}
}

// errorCodeAndCause pulls {Error, Cause} back out of a document produced by
// errorValue.
func errorCodeAndCause(doc Value) (string, string) {
	code, cause := CodeTaskFailed, ""
	if v, ok := doc.Get("Error"); ok {
		code = v.Str()
	}
	if v, ok := doc.Get("Cause"); ok {
		cause = v.Str()
	}
	return code, cause
}

// exceedsTolerance reports whether failures breaches either tolerance
// threshold (§4.3); with neither set, any failure exceeds tolerance.
func exceedsTolerance(failures, total int, count *int, percentage *float64) bool {
	if failures == 0 {
		return false
	}
	if count == nil && percentage == nil {
		return true
	}
	if count != nil && failures > *count {
		return true
	}
	if percentage != nil && total > 0 {
		pct := float64(failures) / float64(total) * 100
		if pct > *percentage {
			return true
		}
	}
	return false
}

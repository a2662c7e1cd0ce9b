package asl

import (
	"context"
	"time"
)

// errorValue renders a WorkflowError as the {Error, Cause} object written
// into the document by a Catch rule or a terminal Fail (§3.1, §7).
func errorValue(we *WorkflowError) Value {
	return EmptyObject().Set("Error", String(we.Code)).Set("Cause", String(we.Cause))
}

func toRuntimeRetryRule(spec RetrySpec) RetryRule {
	return RetryRule{
		ErrorEquals:     spec.ErrorEquals,
		IntervalSeconds: effectiveRetryInterval(spec),
		MaxAttempts:     effectiveRetryMaxAttempts(spec),
		BackoffRate:     effectiveRetryBackoffRate(spec),
		MaxDelaySeconds: spec.MaxDelaySeconds,
		Jitter:          jitterStrategyFromString(spec.JitterStrategy),
	}
}

// attemptBody is the core operation a Retry/Catch-bearing state (Task, Map,
// Parallel) wraps: given the zero-based attempt count for bookkeeping
// (idempotency keys, trace detail), produce a result or an error.
type attemptBody func(ctx context.Context, attempt int) (Value, error)

// runRetryCatch executes body under the state's Retry/Catch policy (§4.9).
// On success it returns the body's result. On a caught error it returns a
// StepResult routing to the catch target. On an uncaught error it returns
// the WorkflowError, which the calling state returns as Step's error.
//
// Retry counters are local to this call: "retries reset per state entry"
// (§4.9) falls out naturally since a fresh counters slice is allocated on
// every call.
func runRetryCatch(ctx context.Context, ec *ExecutionContext, stateName string, input Value, retries []RetrySpec, catches []CatchSpec, body attemptBody) (Value, *StepResult, *WorkflowError) {
	counters := make([]int, len(retries))
	delays := make([]time.Duration, len(retries))
	attempt := 0

	for {
		result, err := body(ctx, attempt)
		if err == nil {
			return result, nil, nil
		}
		we := AsWorkflowError(err)
		ec.record(TraceError, stateName, EmptyObject().Set("Error", String(we.Code)).Set("Cause", String(we.Cause)))

		ruleIdx := -1
		for i := range retries {
			if matchesError(retries[i].ErrorEquals, we.Code) {
				ruleIdx = i
				break
			}
		}
		if ruleIdx >= 0 {
			rule := toRuntimeRetryRule(retries[ruleIdx])
			if counters[ruleIdx] < rule.MaxAttempts {
				delay := computeBackoff(rule, counters[ruleIdx], delays[ruleIdx], ec.RNG)
				delays[ruleIdx] = delay
				ec.record(TraceRetry, stateName, EmptyObject().Set("Attempt", Int(int64(counters[ruleIdx]+1))).Set("DelaySeconds", Float(delay.Seconds())))
				ec.Metrics.recordRetry(stateName, we.Code)
				counters[ruleIdx]++
				if serr := ec.Sleeper.Sleep(ctx, delay); serr != nil {
					return Value{}, nil, &WorkflowError{Code: CodeCancelled, Cause: serr.Error()}
				}
				attempt++
				continue
			}
		}

		for _, c := range catches {
			if !matchesError(c.ErrorEquals, we.Code) {
				continue
			}
			merged, perr := applyResultPath(c.ResultPath, input, errorValue(we))
			if perr != nil {
				return Value{}, nil, AsWorkflowError(perr)
			}
			return Value{}, &StepResult{Status: StepNext, Output: merged, NextState: c.Next}, nil
		}

		return Value{}, nil, we
	}
}

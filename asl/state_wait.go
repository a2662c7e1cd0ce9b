package asl

import (
	"context"
	"time"
)

// waitState implements Wait (§4.6): computes a duration or absolute
// deadline from exactly one of Seconds/SecondsPath/Timestamp/TimestampPath,
// then cooperatively sleeps before continuing.
type waitState struct {
	name string
	spec StateSpec
}

func (s *waitState) Step(ctx context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	delay, err := s.resolveDelay(input, ctxObj, ec)
	if err != nil {
		return StepResult{}, err
	}
	if delay < 0 {
		delay = 0
	}
	if delay > 0 {
		if err := ec.Sleeper.Sleep(ctx, delay); err != nil {
			return StepResult{}, &EngineError{Code: CodeCancelled, Message: "wait interrupted: " + err.Error()}
		}
	}

	output, err := applyOutputPath(s.spec.OutputPath, input, ctxObj)
	if err != nil {
		return StepResult{}, err
	}

	if s.spec.End {
		return StepResult{Status: StepEnd, Output: output}, nil
	}
	return StepResult{Status: StepNext, Output: output, NextState: s.spec.Next}, nil
}

func (s *waitState) resolveDelay(input, ctxObj Value, ec *ExecutionContext) (time.Duration, error) {
	switch {
	case s.spec.Seconds != nil:
		return time.Duration(*s.spec.Seconds * float64(time.Second)), nil
	case s.spec.SecondsPath != "":
		v, err := mustPathRead(s.spec.SecondsPath, input, ctxObj)
		if err != nil {
			return 0, err
		}
		return time.Duration(v.Float64() * float64(time.Second)), nil
	case s.spec.Timestamp != "":
		target, err := parseTimestamp(s.spec.Timestamp)
		if err != nil {
			return 0, &EngineError{Code: CodeParameterPathFailure, Message: "invalid Timestamp: " + err.Error()}
		}
		return delayUntil(target, ec), nil
	case s.spec.TimestampPath != "":
		v, err := mustPathRead(s.spec.TimestampPath, input, ctxObj)
		if err != nil {
			return 0, err
		}
		target, err := parseTimestamp(v.Str())
		if err != nil {
			return 0, &EngineError{Code: CodeParameterPathFailure, Message: "invalid TimestampPath value: " + err.Error()}
		}
		return delayUntil(target, ec), nil
	default:
		return 0, &EngineError{Code: CodeParameterPathFailure, Message: "Wait state has none of Seconds/SecondsPath/Timestamp/TimestampPath"}
	}
}

// delayUntil returns the duration from now until target, or zero if target
// has already passed (§4.6: "past timestamps mean zero delay").
func delayUntil(target time.Time, ec *ExecutionContext) time.Duration {
	d := target.Sub(ec.Clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

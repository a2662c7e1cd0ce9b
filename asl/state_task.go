package asl

import (
	"context"
	"errors"
	"time"
)

// configBlockKeys lists the non-execution StateSpec blocks surfaced
// verbatim to the agent invocation as opaque config (§4.1 step 3). The
// engine assigns no behavior to their contents beyond pass-through.
var configBlockKeys = []string{
	"Memory", "Context", "Tools", "Guardrails", "Reasoning",
	"Generation", "Model", "Budget", "Streaming",
}

// taskState implements Task (§4.1): the full InputPath -> Parameters ->
// invoke -> ResultSelector -> ResultPath -> OutputPath pipeline, with its
// body wrapped by the Retry/Catch policy engine (§4.9).
type taskState struct {
	name   string
	spec   StateSpec
	agents AgentRegistry
	costs  *CostEstimator
}

func (s *taskState) Step(ctx context.Context, rawInput Value, ec *ExecutionContext) (StepResult, error) {
	ctxObj := ec.contextObject(s.name)

	input, err := applyInputPath(s.spec.InputPath, rawInput, ctxObj)
	if err != nil {
		return StepResult{}, err
	}
	input = input.AsObject()

	config := s.buildConfig()

	body := func(ctx context.Context, attempt int) (Value, error) {
		return s.invoke(ctx, input, ctxObj, config, ec, attempt)
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

func (s *taskState) buildConfig() Value {
	config := EmptyObject()
	for _, key := range configBlockKeys {
		if v := s.configBlock(key); v != nil {
			config = config.Set(key, *v)
		}
	}
	if s.spec.Idempotent {
		config = config.Set("Idempotent", Bool(true))
		if s.spec.IdempotencyKey != "" {
			config = config.Set("IdempotencyKey", String(s.spec.IdempotencyKey))
		}
	}
	return config
}

func (s *taskState) configBlock(key string) *Value {
	switch key {
	case "Memory":
		return s.spec.Memory
	case "Context":
		return s.spec.Context
	case "Tools":
		return s.spec.Tools
	case "Guardrails":
		return s.spec.Guardrails
	case "Reasoning":
		return s.spec.Reasoning
	case "Generation":
		return s.spec.Generation
	case "Model":
		return s.spec.Model
	case "Budget":
		return s.spec.Budget
	case "Streaming":
		return s.spec.Streaming
	}
	return nil
}

// invoke runs one attempt of the agent call: Parameters, the registry
// invocation itself (bounded by TimeoutSeconds), usage extraction, and
// ResultSelector (§4.1 steps 2, 4, 5, 6).
func (s *taskState) invoke(ctx context.Context, input, ctxObj, config Value, ec *ExecutionContext, attempt int) (Value, error) {
	agentInput := input
	if s.spec.Parameters != nil {
		resolved, err := resolveParameters(*s.spec.Parameters, input, ctxObj)
		if err != nil {
			return Value{}, err
		}
		agentInput = resolved
	}

	invokeCtx := ctx
	var cancel context.CancelFunc
	if s.spec.TimeoutSeconds > 0 {
		invokeCtx, cancel = withRelativeTimeout(ctx, s.spec.TimeoutSeconds)
		defer cancel()
	}

	var heartbeat func()
	var heartbeatExpired func() bool
	if s.spec.HeartbeatSeconds > 0 {
		var stop func()
		invokeCtx, heartbeat, heartbeatExpired, stop = startHeartbeatMonitor(invokeCtx, time.Duration(s.spec.HeartbeatSeconds*float64(time.Second)))
		defer stop()
	}

	call := CallInfo{
		StateName:   s.name,
		ExecutionID: ec.ExecutionID,
		Deadline:    s.spec.TimeoutSeconds,
		Heartbeat:   heartbeat,
		Done:        invokeCtx.Done(),
	}

	raw, err := s.agents.Invoke(invokeCtx, s.spec.AgentName, agentInput, config, call)
	if err != nil {
		switch {
		case heartbeatExpired != nil && heartbeatExpired():
			return Value{}, &WorkflowError{Code: CodeTimeout, Cause: "missed heartbeat: " + err.Error()}
		case errors.Is(invokeCtx.Err(), context.DeadlineExceeded):
			return Value{}, &WorkflowError{Code: CodeTimeout, Cause: invokeCtx.Err().Error()}
		case errors.Is(invokeCtx.Err(), context.Canceled):
			return Value{}, &WorkflowError{Code: CodeCancelled, Cause: invokeCtx.Err().Error()}
		default:
			return Value{}, err
		}
	}

	stripped, tokens, cost := extractUsage(raw)
	ec.Usage.Add(tokens, cost)
	ec.Metrics.recordUsage(tokens, cost)
	if s.costs != nil && tokens > 0 {
		s.costs.Record(s.spec.AgentName, s.modelID(config), tokens, cost, ec.Clock.Now())
	}

	result := stripped
	if s.spec.ResultSelector != nil {
		merged := shallowMerge(input, stripped)
		selected, err := resolveResultSelector(*s.spec.ResultSelector, merged, ctxObj)
		if err != nil {
			return Value{}, err
		}
		result = selected
	}
	return result, nil
}

// modelID pulls a best-effort model identifier out of the opaque Model
// config block for cost attribution; the engine assigns no other meaning to
// this block's contents (§4.1 step 3).
func (s *taskState) modelID(config Value) string {
	model, ok := config.Get("Model")
	if !ok || !model.IsObject() {
		return ""
	}
	for _, key := range []string{"Id", "Name", "Model"} {
		if v, ok := model.Get(key); ok && v.IsString() {
			return v.Str()
		}
	}
	return ""
}

// shallowMerge overlays b's keys onto a (b wins), used to build the document
// ResultSelector sees at "$" (§4.1 step 6).
func shallowMerge(a, b Value) Value {
	if !a.IsObject() {
		return b
	}
	out := a
	if b.IsObject() {
		for _, k := range b.Keys() {
			v, _ := b.Get(k)
			out = out.Set(k, v)
		}
	}
	return out
}

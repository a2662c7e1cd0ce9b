package asl

import (
	"context"
	"testing"
	"time"
)

func buildBranch(t *testing.T, env registryEnv, tag string) *Definition {
	t.Helper()
	result := EmptyObject().Set("branch", String(tag))
	return &Definition{StartAt: "B", States: map[string]StateSpec{
		"B": {Type: StateTypePass, Result: &result, End: true},
	}}
}

func TestParallelStateRunsEveryBranch(t *testing.T) {
	env := testEnv()
	branchA, err := compile(buildBranch(t, env, "a"), env)
	if err != nil {
		t.Fatalf("compile branch a: %v", err)
	}
	branchB, err := compile(buildBranch(t, env, "b"), env)
	if err != nil {
		t.Fatalf("compile branch b: %v", err)
	}
	s := &parallelState{name: "P", spec: StateSpec{Type: StateTypeParallel, End: true}, branches: []*compiledMachine{branchA, branchB}}

	res, err := s.Step(context.Background(), EmptyObject(), NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Output.Len() != 2 {
		t.Fatalf("expected 2 branch results, got %v", res.Output)
	}
	if b, _ := res.Output.Items()[0].Get("branch"); b.Str() != "a" {
		t.Errorf("branch 0 = %v", res.Output.Items()[0])
	}
}

func TestParallelStateFailsWhenABranchFailsUncaught(t *testing.T) {
	env := testEnv()
	okBranch, _ := compile(buildBranch(t, env, "ok"), env)
	failingDef := &Definition{StartAt: "Boom", States: map[string]StateSpec{
		"Boom": {Type: StateTypeFail, Error: "Branch.Broken"},
	}}
	failingBranch, err := compile(failingDef, env)
	if err != nil {
		t.Fatalf("compile failing branch: %v", err)
	}
	s := &parallelState{name: "P", spec: StateSpec{Type: StateTypeParallel, End: true}, branches: []*compiledMachine{okBranch, failingBranch}}

	_, err = s.Step(context.Background(), EmptyObject(), NewExecutionContext("e", nil, nil, nil))
	if err == nil {
		t.Fatal("expected States.ParallelFailed when a branch fails uncaught")
	}
	if AsWorkflowError(err).Code != CodeParallelFailed {
		t.Errorf("code = %v", AsWorkflowError(err).Code)
	}
}

// TestParallelStateCancelsSiblingTaskOnFailure exercises a real Task
// invocation racing cancellation: one branch fails immediately while a
// sibling branch is mid-flight in an agent call that only returns once its
// context is cancelled. The in-flight branch must be traced as
// States.Cancelled, not States.Timeout, per the cancellation-vs-expiry
// distinction in invoke.
func TestParallelStateCancelsSiblingTaskOnFailure(t *testing.T) {
	env := testEnv()
	blocking := agentFunc(func(ctx context.Context, input, config Value, call CallInfo) (Value, error) {
		<-ctx.Done()
		return Value{}, ctx.Err()
	})
	env.Agents.(*MapAgentRegistry).Register("blocking", blocking)

	slowDef := &Definition{StartAt: "Slow", States: map[string]StateSpec{
		"Slow": {Type: StateTypeTask, AgentName: "blocking", End: true},
	}}
	slowBranch, err := compile(slowDef, env)
	if err != nil {
		t.Fatalf("compile slow branch: %v", err)
	}

	failingDef := &Definition{StartAt: "Boom", States: map[string]StateSpec{
		"Boom": {Type: StateTypeFail, Error: "Branch.Broken"},
	}}
	failingBranch, err := compile(failingDef, env)
	if err != nil {
		t.Fatalf("compile failing branch: %v", err)
	}

	s := &parallelState{name: "P", spec: StateSpec{Type: StateTypeParallel, End: true}, branches: []*compiledMachine{slowBranch, failingBranch}}

	ec := NewExecutionContext("e", nil, nil, nil)
	done := make(chan struct{})
	go func() {
		_, _ = s.Step(context.Background(), EmptyObject(), ec)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Step did not return after a sibling branch failed")
	}

	var sawCancelled bool
	for _, entry := range ec.Trace {
		if entry.Kind != TraceError {
			continue
		}
		code, _ := entry.Extras.Get("Error")
		if code.Str() == CodeCancelled {
			sawCancelled = true
		}
		if code.Str() == CodeTimeout {
			t.Errorf("expected the cancelled branch to be traced as %s, got %s", CodeCancelled, CodeTimeout)
		}
	}
	if !sawCancelled {
		t.Errorf("expected a States.Cancelled trace entry for the in-flight branch, trace = %+v", ec.Trace)
	}
}

func TestParallelStateCatchRoutesOnFailure(t *testing.T) {
	env := testEnv()
	failingDef := &Definition{StartAt: "Boom", States: map[string]StateSpec{
		"Boom": {Type: StateTypeFail, Error: "Branch.Broken"},
	}}
	failingBranch, err := compile(failingDef, env)
	if err != nil {
		t.Fatalf("compile failing branch: %v", err)
	}
	spec := StateSpec{
		Type: StateTypeParallel, Next: "Unused",
		Catch: []CatchSpec{{ErrorEquals: []string{CodeParallelFailed}, Next: "Handle"}},
	}
	s := &parallelState{name: "P", spec: spec, branches: []*compiledMachine{failingBranch}}

	res, err := s.Step(context.Background(), EmptyObject(), NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("expected the failure to be caught: %v", err)
	}
	if res.Status != StepNext || res.NextState != "Handle" {
		t.Errorf("res = %+v", res)
	}
}

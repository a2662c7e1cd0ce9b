package asl

import (
	"context"
	"testing"
)

func TestChoiceStateRoutesOnFirstMatch(t *testing.T) {
	spec := StateSpec{
		Type: StateTypeChoice,
		Choices: []ChoiceRule{
			{Variable: "$.n", NumericGreaterThan: f64p(10), Next: "Big"},
			{Variable: "$.n", NumericGreaterThan: f64p(0), Next: "Small"},
		},
		Default: "Fallback",
	}
	s := &choiceState{name: "C", spec: spec}

	res, err := s.Step(context.Background(), EmptyObject().Set("n", Int(5)), NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Status != StepNext || res.NextState != "Small" {
		t.Errorf("res = %+v", res)
	}
}

func TestChoiceStateNoMatchNoDefaultRaises(t *testing.T) {
	spec := StateSpec{Type: StateTypeChoice, Choices: []ChoiceRule{
		{Variable: "$.n", NumericGreaterThan: f64p(100), Next: "Big"},
	}}
	s := &choiceState{name: "C", spec: spec}

	_, err := s.Step(context.Background(), EmptyObject().Set("n", Int(1)), NewExecutionContext("e", nil, nil, nil))
	if err == nil {
		t.Fatal("expected a States.NoChoiceMatched error")
	}
	we := AsWorkflowError(err)
	if we.Code != CodeNoChoiceMatched {
		t.Errorf("code = %q", we.Code)
	}
}

func TestChoiceStateRecordsTraceChoiceMatch(t *testing.T) {
	spec := StateSpec{Type: StateTypeChoice, Choices: []ChoiceRule{
		{Variable: "$.n", IsPresent: boolp(true), Next: "Next"},
	}}
	s := &choiceState{name: "C", spec: spec}
	ec := NewExecutionContext("e", nil, nil, nil)

	if _, err := s.Step(context.Background(), EmptyObject().Set("n", Int(1)), ec); err != nil {
		t.Fatalf("Step: %v", err)
	}
	found := false
	for _, te := range ec.Trace {
		if te.Kind == TraceChoiceMatch {
			found = true
		}
	}
	if !found {
		t.Error("expected a TraceChoiceMatch entry to be recorded")
	}
}

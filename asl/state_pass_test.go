package asl

import (
	"context"
	"testing"
)

func TestPassStateResultLiteral(t *testing.T) {
	result := EmptyObject().Set("greeting", String("hi"))
	s := &passState{name: "P", spec: StateSpec{Type: StateTypePass, Result: &result, End: true}}

	res, err := s.Step(context.Background(), EmptyObject().Set("ignored", Int(1)), NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Status != StepEnd {
		t.Errorf("status = %v", res.Status)
	}
	if g, _ := res.Output.Get("greeting"); g.Str() != "hi" {
		t.Errorf("output = %v", res.Output)
	}
}

func TestPassStatePassesInputThroughWhenNoResultOrParameters(t *testing.T) {
	s := &passState{name: "P", spec: StateSpec{Type: StateTypePass, Next: "Next"}}
	input := EmptyObject().Set("x", Int(7))

	res, err := s.Step(context.Background(), input, NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Status != StepNext || res.NextState != "Next" {
		t.Errorf("res = %+v", res)
	}
	if x, _ := res.Output.Get("x"); x.Int64() != 7 {
		t.Errorf("output = %v", res.Output)
	}
}

func TestPassStateParametersTemplate(t *testing.T) {
	params := EmptyObject().Set("doubled.$", String("States.MathAdd($.n, $.n)"))
	s := &passState{name: "P", spec: StateSpec{Type: StateTypePass, Parameters: &params, End: true}}

	res, err := s.Step(context.Background(), EmptyObject().Set("n", Int(4)), NewExecutionContext("e", nil, nil, nil))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if d, _ := res.Output.Get("doubled"); d.Int64() != 8 {
		t.Errorf("doubled = %v", d)
	}
}

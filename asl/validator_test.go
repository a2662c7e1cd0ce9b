package asl

import (
	"strings"
	"testing"
)

func validDefinition() *Definition {
	return &Definition{
		StartAt: "Start",
		States: map[string]StateSpec{
			"Start": {Type: StateTypePass, Next: "End"},
			"End":   {Type: StateTypeSucceed},
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	if errs := Validate(validDefinition()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateMissingStartAtAndStates(t *testing.T) {
	errs := Validate(&Definition{})
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors (missing StartAt, missing States), got %v", errs)
	}
}

func TestValidateStartAtReferencesNonexistentState(t *testing.T) {
	def := &Definition{StartAt: "Ghost", States: map[string]StateSpec{"Real": {Type: StateTypeSucceed}}}
	errs := Validate(def)
	found := false
	for _, e := range errs {
		if ve, ok := e.(*ValidationError); ok && ve.Message == "StartAt references nonexistent state: Ghost" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a StartAt-nonexistent error, got %v", errs)
	}
}

func TestValidateStateRequiresNextOrEnd(t *testing.T) {
	def := &Definition{StartAt: "A", States: map[string]StateSpec{"A": {Type: StateTypePass}}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "lacks both Next and End") {
		t.Errorf("expected 'lacks both Next and End', got %v", errs)
	}
}

func TestValidateStateRejectsBothNextAndEnd(t *testing.T) {
	def := &Definition{StartAt: "A", States: map[string]StateSpec{"A": {Type: StateTypePass, Next: "A", End: true}}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "declares both Next and End") {
		t.Errorf("expected 'declares both Next and End', got %v", errs)
	}
}

func TestValidateChoiceRequiresChoicesAndNext(t *testing.T) {
	def := &Definition{StartAt: "C", States: map[string]StateSpec{
		"C": {Type: StateTypeChoice},
	}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "Choice state has empty Choices") {
		t.Errorf("expected empty-Choices error, got %v", errs)
	}

	noNext := &Definition{StartAt: "C", States: map[string]StateSpec{
		"C": {Type: StateTypeChoice, Choices: []ChoiceRule{{Variable: "$.x", IsPresent: boolp(true)}}},
	}}
	if errs := Validate(noNext); !containsValidationMessage(errs, "Choices[0] lacks Next") {
		t.Errorf("expected Choices[0]-lacks-Next error, got %v", errs)
	}
}

func TestValidateMapRequiresItemsPathAndIterator(t *testing.T) {
	def := &Definition{StartAt: "M", States: map[string]StateSpec{
		"M": {Type: StateTypeMap, End: true},
	}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "Map state lacks ItemsPath") {
		t.Errorf("expected ItemsPath error, got %v", errs)
	}
	if !containsValidationMessage(errs, "Map state lacks Iterator.StartAt/Iterator.States") {
		t.Errorf("expected Iterator error, got %v", errs)
	}
}

func TestValidateParallelRequiresBranches(t *testing.T) {
	def := &Definition{StartAt: "P", States: map[string]StateSpec{
		"P": {Type: StateTypeParallel, End: true},
	}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "Parallel state has no branches") {
		t.Errorf("expected no-branches error, got %v", errs)
	}
}

func TestValidateWaitRequiresExactlyOneDelaySource(t *testing.T) {
	none := &Definition{StartAt: "W", States: map[string]StateSpec{
		"W": {Type: StateTypeWait, End: true},
	}}
	if !containsValidationMessage(Validate(none), "must set exactly one of") {
		t.Error("expected an error when no delay source is set")
	}

	both := &Definition{StartAt: "W", States: map[string]StateSpec{
		"W": {Type: StateTypeWait, End: true, Seconds: f64p(1), SecondsPath: "$.x"},
	}}
	if !containsValidationMessage(Validate(both), "must set exactly one of") {
		t.Error("expected an error when two delay sources are set")
	}
}

func TestValidateUnknownStateType(t *testing.T) {
	def := &Definition{StartAt: "X", States: map[string]StateSpec{"X": {Type: "Bogus"}}}
	if !containsValidationMessage(Validate(def), "unknown state type") {
		t.Error("expected an unknown-state-type error")
	}
}

func TestValidateUnreachableState(t *testing.T) {
	def := &Definition{StartAt: "A", States: map[string]StateSpec{
		"A":      {Type: StateTypeSucceed},
		"Orphan": {Type: StateTypeSucceed},
	}}
	if !containsValidationMessage(Validate(def), "unreachable from StartAt") {
		t.Error("expected an unreachable-state error for Orphan")
	}
}

func TestValidateRecursesIntoMapIteratorAndParallelBranches(t *testing.T) {
	def := &Definition{StartAt: "M", States: map[string]StateSpec{
		"M": {
			Type: StateTypeMap, End: true, ItemsPath: "$.items",
			Iterator: &Definition{StartAt: "Bad", States: map[string]StateSpec{}},
		},
	}}
	errs := Validate(def)
	if !containsValidationMessage(errs, "Map state lacks Iterator.StartAt/Iterator.States") {
		t.Errorf("expected iterator shape error, got %v", errs)
	}
	if !containsValidationMessage(errs, "StartAt references nonexistent state: Bad") {
		t.Errorf("expected the iterator's own StartAt error from recursion, got %v", errs)
	}

	par := &Definition{StartAt: "P", States: map[string]StateSpec{
		"P": {Type: StateTypeParallel, End: true, Branches: []*Definition{
			{StartAt: "Ghost", States: map[string]StateSpec{"B": {Type: StateTypeSucceed}}},
		}},
	}}
	if errs := Validate(par); !containsValidationMessage(errs, "StartAt references nonexistent state: Ghost") {
		t.Errorf("expected the branch's own StartAt error from recursion, got %v", errs)
	}
}

func containsValidationMessage(errs []error, substr string) bool {
	for _, e := range errs {
		if ve, ok := e.(*ValidationError); ok && strings.Contains(ve.Message, substr) {
			return true
		}
	}
	return false
}

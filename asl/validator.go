package asl

import "fmt"

// ValidationError reports one structural defect found while validating a
// Definition (§4.13). Validation never executes or resolves path
// expressions; it only checks the shape of the document.
type ValidationError struct {
	State   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.State == "" {
		return e.Message
	}
	return fmt.Sprintf("state %q: %s", e.State, e.Message)
}

// Validate checks def against §4.13's rules, returning every defect found
// (not just the first) so a definition author sees the whole picture.
func Validate(def *Definition) []error {
	var errs []error

	if def.StartAt == "" {
		errs = append(errs, &ValidationError{Message: "missing StartAt"})
	}
	if len(def.States) == 0 {
		errs = append(errs, &ValidationError{Message: "missing States"})
	}
	if def.StartAt != "" {
		if _, ok := def.States[def.StartAt]; !ok {
			errs = append(errs, &ValidationError{Message: "StartAt references nonexistent state: " + def.StartAt})
		}
	}

	for name, spec := range def.States {
		errs = append(errs, validateState(name, spec)...)
	}

	errs = append(errs, checkReachability(def)...)

	return errs
}

func validateState(name string, spec StateSpec) []error {
	var errs []error
	fail := func(format string, a ...any) {
		errs = append(errs, &ValidationError{State: name, Message: fmt.Sprintf(format, a...)})
	}

	switch spec.Type {
	case StateTypeTask, StateTypeChoice, StateTypeMap, StateTypeParallel, StateTypePass,
		StateTypeWait, StateTypeSucceed, StateTypeFail, StateTypeApproval, StateTypeCheckpoint:
		// recognized
	case "":
		fail("missing Type")
		return errs
	default:
		fail("unknown state type: %s", spec.Type)
		return errs
	}

	isTerminal := spec.Type == StateTypeSucceed || spec.Type == StateTypeFail
	hasDynamicRouting := spec.Type == StateTypeChoice || (spec.Type == StateTypeApproval && len(spec.Choices) > 0)

	if !isTerminal && !hasDynamicRouting {
		switch {
		case spec.Next != "" && spec.End:
			fail("declares both Next and End")
		case spec.Next == "" && !spec.End:
			fail("lacks both Next and End")
		}
	}

	switch spec.Type {
	case StateTypeChoice:
		if len(spec.Choices) == 0 {
			fail("Choice state has empty Choices")
		}
		for i, rule := range spec.Choices {
			if rule.Next == "" {
				fail("Choices[%d] lacks Next", i)
			}
		}
	case StateTypeMap:
		if spec.ItemsPath == "" {
			fail("Map state lacks ItemsPath")
		}
		if spec.Iterator == nil || spec.Iterator.StartAt == "" || len(spec.Iterator.States) == 0 {
			fail("Map state lacks Iterator.StartAt/Iterator.States")
		}
	case StateTypeParallel:
		if len(spec.Branches) == 0 {
			fail("Parallel state has no branches")
		}
	case StateTypeWait:
		count := 0
		if spec.Seconds != nil {
			count++
		}
		if spec.SecondsPath != "" {
			count++
		}
		if spec.Timestamp != "" {
			count++
		}
		if spec.TimestampPath != "" {
			count++
		}
		if count != 1 {
			fail("Wait state must set exactly one of Seconds/SecondsPath/Timestamp/TimestampPath")
		}
	}

	return errs
}

// checkReachability verifies invariant 3.2.1/3.2.3: every state is reachable
// from StartAt, and every Next/Default/Catch.Next names an existing state,
// recursing into Map.Iterator and Parallel.Branches sub-definitions.
func checkReachability(def *Definition) []error {
	var errs []error

	reached := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if reached[name] {
			return
		}
		spec, ok := def.States[name]
		if !ok {
			errs = append(errs, &ValidationError{Message: "transition to nonexistent state: " + name})
			return
		}
		reached[name] = true

		if spec.Next != "" {
			visit(spec.Next)
		}
		if spec.Default != "" {
			visit(spec.Default)
		}
		for _, c := range spec.Choices {
			visitChoiceTargets(c, visit)
		}
		for _, c := range spec.Catch {
			if c.Next != "" {
				visit(c.Next)
			}
		}
		if spec.Iterator != nil {
			errs = append(errs, Validate(spec.Iterator)...)
		}
		for _, b := range spec.Branches {
			errs = append(errs, Validate(b)...)
		}
	}

	if def.StartAt != "" {
		visit(def.StartAt)
	}

	for name := range def.States {
		if !reached[name] {
			errs = append(errs, &ValidationError{State: name, Message: "unreachable from StartAt"})
		}
	}

	return errs
}

func visitChoiceTargets(rule ChoiceRule, visit func(string)) {
	if rule.Next != "" {
		visit(rule.Next)
	}
	for _, sub := range rule.And {
		visitChoiceTargets(sub, visit)
	}
	for _, sub := range rule.Or {
		visitChoiceTargets(sub, visit)
	}
	if rule.Not != nil {
		visitChoiceTargets(*rule.Not, visit)
	}
}

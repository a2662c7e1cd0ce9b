package asl

import "fmt"

// compiledMachine is a validated Definition with its states built into live
// State implementations (component E), ready for a runner to drive.
type compiledMachine struct {
	startAt string
	states  map[string]State
}

// compile validates def and builds a compiledMachine, wiring Task states to
// env.Agents, Approval states to env.Approvals, and Checkpoint states to
// env.Checkpoints. Map.Iterator and Parallel.Branches are compiled
// recursively so nested sub-machines share the same collaborators.
func compile(def *Definition, env registryEnv) (*compiledMachine, error) {
	if errs := Validate(def); len(errs) > 0 {
		return nil, fmt.Errorf("asl: definition invalid: %w", joinErrors(errs))
	}

	m := &compiledMachine{startAt: def.StartAt, states: make(map[string]State, len(def.States))}
	for name, spec := range def.States {
		st, err := buildState(name, spec, env)
		if err != nil {
			return nil, err
		}
		m.states[name] = st
	}
	return m, nil
}

func buildState(name string, spec StateSpec, env registryEnv) (State, error) {
	switch spec.Type {
	case StateTypeTask:
		return &taskState{name: name, spec: spec, agents: env.Agents, costs: env.Costs}, nil
	case StateTypeChoice:
		return &choiceState{name: name, spec: spec}, nil
	case StateTypePass:
		return &passState{name: name, spec: spec}, nil
	case StateTypeWait:
		return &waitState{name: name, spec: spec}, nil
	case StateTypeSucceed:
		return &succeedState{name: name, spec: spec}, nil
	case StateTypeFail:
		return &failState{name: name, spec: spec}, nil
	case StateTypeMap:
		sub, err := compile(spec.Iterator, env)
		if err != nil {
			return nil, fmt.Errorf("asl: state %q: %w", name, err)
		}
		return &mapState{name: name, spec: spec, iterator: sub}, nil
	case StateTypeParallel:
		branches := make([]*compiledMachine, len(spec.Branches))
		for i, b := range spec.Branches {
			sub, err := compile(b, env)
			if err != nil {
				return nil, fmt.Errorf("asl: state %q branch %d: %w", name, i, err)
			}
			branches[i] = sub
		}
		return &parallelState{name: name, spec: spec, branches: branches}, nil
	case StateTypeApproval:
		return &approvalState{name: name, spec: spec, approvals: env.Approvals, checkpoints: env.Checkpoints}, nil
	case StateTypeCheckpoint:
		return &checkpointState{name: name, spec: spec, checkpoints: env.Checkpoints}, nil
	default:
		return nil, fmt.Errorf("asl: state %q: unknown type %q", name, spec.Type)
	}
}

// stateTypeName recovers a state's StateType label for metrics, without
// requiring every State implementation to expose it through the interface.
func stateTypeName(s State) string {
	switch s.(type) {
	case *taskState:
		return string(StateTypeTask)
	case *choiceState:
		return string(StateTypeChoice)
	case *passState:
		return string(StateTypePass)
	case *waitState:
		return string(StateTypeWait)
	case *succeedState:
		return string(StateTypeSucceed)
	case *failState:
		return string(StateTypeFail)
	case *mapState:
		return string(StateTypeMap)
	case *parallelState:
		return string(StateTypeParallel)
	case *approvalState:
		return string(StateTypeApproval)
	case *checkpointState:
		return string(StateTypeCheckpoint)
	default:
		return "Unknown"
	}
}

// stepStatusLabel renders a StepStatus as the metrics label value.
func stepStatusLabel(s StepStatus) string {
	switch s {
	case StepNext:
		return "next"
	case StepEnd:
		return "end"
	case StepFail:
		return "fail"
	case StepSuspend:
		return "suspend"
	default:
		return "unknown"
	}
}

// joinErrors flattens a []error into a single error for wrapping; Validate
// intentionally collects every defect rather than stopping at the first.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%d validation errors:", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

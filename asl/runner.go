package asl

import (
	"context"
	"fmt"

	"github.com/asl-engine/asl/emit"
)

// RunStatus is the terminal or suspended state of an Outcome (§3.1, §6.5).
type RunStatus string

const (
	StatusSucceeded RunStatus = "Succeeded"
	StatusFailed    RunStatus = "Failed"
	StatusSuspended RunStatus = "Suspended"
)

// Outcome is the runner surface's return value (§6.5).
type Outcome struct {
	Status          RunStatus
	Output          Value
	Trace           []TraceEntry
	Usage           UsageTotals
	PendingApproval string
	CheckpointID    string
}

// machineOutcome is the internal result of driving a compiledMachine to
// completion or suspension; Runner.Run/Resume translate it into an Outcome.
type machineOutcome struct {
	status  RunStatus
	output  Value
	suspend *StepResult
}

// runMachine drives m from startState with doc as the running document,
// stepping states until a terminal or suspend result (§2 "Control flow").
// It is shared by the top-level Runner and by Map/Parallel, whose branches
// and iterations are themselves compiledMachine sub-executions.
func runMachine(ctx context.Context, m *compiledMachine, startState string, doc Value, ec *ExecutionContext) machineOutcome {
	current := startState

	for {
		select {
		case <-ctx.Done():
			return machineOutcome{status: StatusFailed, output: errorValue(&WorkflowError{Code: CodeCancelled, Cause: ctx.Err().Error()})}
		default:
		}

		state, ok := m.states[current]
		if !ok {
			we := &WorkflowError{Code: CodeTaskFailed, Cause: "unknown state: " + current}
			return machineOutcome{status: StatusFailed, output: errorValue(we)}
		}

		traceIdx := ec.enterState(current)
		stepStart := ec.Clock.Now()
		res, err := state.Step(ctx, doc, ec)
		ec.exitState(traceIdx)

		if err != nil {
			we := AsWorkflowError(err)
			ec.Metrics.recordStep(current, stateTypeName(state), "error", ec.Clock.Now().Sub(stepStart))
			return machineOutcome{status: StatusFailed, output: errorValue(we)}
		}
		ec.Metrics.recordStep(current, stateTypeName(state), stepStatusLabel(res.Status), ec.Clock.Now().Sub(stepStart))

		switch res.Status {
		case StepNext:
			doc = res.Output
			current = res.NextState
			ec.Usage.Add(res.Tokens, res.Cost)
		case StepEnd:
			ec.Usage.Add(res.Tokens, res.Cost)
			return machineOutcome{status: StatusSucceeded, output: res.Output}
		case StepFail:
			return machineOutcome{status: StatusFailed, output: errorValue(&WorkflowError{Code: res.ErrorCode, Cause: res.Cause})}
		case StepSuspend:
			return machineOutcome{status: StatusSuspended, output: doc, suspend: &res}
		default:
			we := &WorkflowError{Code: CodeTaskFailed, Cause: fmt.Sprintf("state %q returned unknown status", current)}
			return machineOutcome{status: StatusFailed, output: errorValue(we)}
		}
	}
}

// Runner is the dispatcher/runner (component I, §6.5): the outer loop that
// drives a Definition from an initial input until it ends, fails, or
// suspends, and resumes a suspended execution from a checkpoint or approval
// token.
type Runner struct {
	machine     *compiledMachine
	env         registryEnv
	clock       Clock
	sleeper     Sleeper
	ids         IDGenerator
	metrics     *Metrics
	emitter     emit.Emitter
	suspensions map[string]*suspension
}

// suspension records the state a paused execution should resume into, keyed
// by the resume token returned in a Suspend StepResult.
type suspension struct {
	executionID string
	stateName   string
	doc         Value
	trace       []TraceEntry
	usage       UsageTotals
}

// NewRunner validates def, compiles its states, and returns a Runner ready
// to drive executions against the given collaborators. A nil agent registry
// or checkpoint store defaults to an in-memory implementation suitable for
// tests; a nil approval collaborator stays nil, and an Approval state then
// fails when it is entered.
func NewRunner(def *Definition, agents AgentRegistry, approvals ApprovalCollaborator, checkpoints CheckpointStore) (*Runner, error) {
	if agents == nil {
		agents = NewMapAgentRegistry()
	}
	if checkpoints == nil {
		checkpoints = NewMemoryCheckpointStore()
	}
	env := registryEnv{Agents: agents, Approvals: approvals, Checkpoints: checkpoints, Costs: NewCostEstimator()}
	m, err := compile(def, env)
	if err != nil {
		return nil, err
	}
	return &Runner{
		machine:     m,
		env:         env,
		clock:       SystemClock,
		sleeper:     RealSleeper,
		ids:         DefaultIDGenerator,
		suspensions: make(map[string]*suspension),
	}, nil
}

// WithEnvironment overrides the clock/sleeper/id generator a Runner injects
// into every ExecutionContext it creates (§9 "Globals: None"), letting tests
// pin time, delays, and identifiers.
func (r *Runner) WithEnvironment(clock Clock, sleeper Sleeper, ids IDGenerator) *Runner {
	if clock != nil {
		r.clock = clock
	}
	if sleeper != nil {
		r.sleeper = sleeper
	}
	if ids != nil {
		r.ids = ids
	}
	return r
}

// Costs returns the Runner's CostEstimator, so a host can inspect per-model
// spend attribution across every execution this Runner has driven.
func (r *Runner) Costs() *CostEstimator {
	return r.env.Costs
}

// WithMetrics attaches a Prometheus sink; every ExecutionContext this
// Runner creates (including Map/Parallel children) reports to it.
func (r *Runner) WithMetrics(m *Metrics) *Runner {
	r.metrics = m
	return r
}

// WithEmitter attaches an observability event sink; every ExecutionContext
// this Runner creates (including Map/Parallel children) forwards its state
// and run lifecycle events to it. Defaults to a NullEmitter.
func (r *Runner) WithEmitter(e emit.Emitter) *Runner {
	r.emitter = e
	return r
}

// Run starts a new execution with input (§6.5).
func (r *Runner) Run(ctx context.Context, input Value) Outcome {
	ec := NewExecutionContext(r.ids.NewID(), r.clock, r.sleeper, r.ids)
	ec.Metrics = r.metrics
	if r.emitter != nil {
		ec.Emitter = r.emitter
	}
	ec.emit("", "run_start", nil)
	result := runMachine(ctx, r.machine, r.machine.startAt, input.AsObject(), ec)
	outcome := r.toOutcome(ec, result)
	ec.emit("", runEventForStatus(outcome.Status), nil)
	return outcome
}

func runEventForStatus(status RunStatus) string {
	switch status {
	case StatusSucceeded:
		return "run_succeeded"
	case StatusFailed:
		return "run_failed"
	case StatusSuspended:
		return "run_suspended"
	default:
		return "run_end"
	}
}

// Resume continues a suspended execution identified by token with the
// caller-supplied payload: an ApprovalDecision-shaped Value for an
// Approval suspension, or ignored for a Checkpoint suspension (§6.5, §4.8,
// §4.10). The token is looked up only among the suspensions this Runner
// itself recorded; Resume does not read the CheckpointStore, so a token
// from another Runner or process is reported as an unknown resume token.
func (r *Runner) Resume(ctx context.Context, token string, payload Value) (Outcome, error) {
	susp, ok := r.suspensions[token]
	if !ok {
		return Outcome{}, fmt.Errorf("asl: unknown resume token: %s", token)
	}
	delete(r.suspensions, token)

	ec := NewExecutionContext(susp.executionID, r.clock, r.sleeper, r.ids)
	ec.Metrics = r.metrics
	if r.emitter != nil {
		ec.Emitter = r.emitter
	}
	ec.Trace = susp.trace
	ec.Usage = susp.usage

	state := r.machine.states[susp.stateName]
	doc := susp.doc

	// Approval/Checkpoint states implement a Resume-capable variant; the
	// factory only ever produces those two types as suspend sources.
	nextState := susp.stateName
	switch st := state.(type) {
	case *approvalState:
		res, err := st.resume(ctx, doc, ec, payload)
		if err != nil {
			return Outcome{}, err
		}
		if res.Status == StepFail {
			out := r.toOutcome(ec, machineOutcome{status: StatusFailed, output: errorValue(&WorkflowError{Code: res.ErrorCode, Cause: res.Cause})})
			ec.emit("", runEventForStatus(out.Status), nil)
			return out, nil
		}
		doc = res.Output
		if res.Status == StepEnd {
			out := r.toOutcome(ec, machineOutcome{status: StatusSucceeded, output: doc})
			ec.emit("", runEventForStatus(out.Status), nil)
			return out, nil
		}
		nextState = res.NextState
	case *checkpointState:
		ec.record(TraceResume, st.name, Value{})
		nextState = st.spec.Next
	default:
		return Outcome{}, fmt.Errorf("asl: state %q is not resumable", susp.stateName)
	}

	result := runMachine(ctx, r.machine, nextState, doc, ec)
	outcome := r.toOutcome(ec, result)
	ec.emit("", runEventForStatus(outcome.Status), nil)
	return outcome, nil
}

func (r *Runner) toOutcome(ec *ExecutionContext, result machineOutcome) Outcome {
	out := Outcome{Status: result.status, Output: result.output, Trace: ec.Trace, Usage: ec.Usage}
	if result.status == StatusSuspended && result.suspend != nil {
		r.suspensions[result.suspend.ResumeToken] = &suspension{
			executionID: ec.ExecutionID,
			stateName:   currentSuspendedState(result),
			doc:         result.output,
			trace:       ec.Trace,
			usage:       ec.Usage,
		}
		if result.suspend.SuspendReason == SuspendApproval {
			out.PendingApproval = result.suspend.ResumeToken
		} else {
			out.CheckpointID = result.suspend.ResumeToken
		}
	}
	return out
}

// currentSuspendedState recovers which state issued the suspend, carried on
// the StepResult's Payload object under "_state" by the Approval/Checkpoint
// states themselves.
func currentSuspendedState(result machineOutcome) string {
	if result.suspend == nil {
		return ""
	}
	v, _ := result.suspend.Payload.Get("_state")
	return v.Str()
}

package asl

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/asl-engine/asl/emit"
)

// Clock supplies the current time to the engine. Execution code never calls
// time.Now() directly so that a fixed clock can make an entire run
// reproducible in tests (Design Notes, "Globals: None").
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock, backed by the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock used when none is supplied.
var SystemClock Clock = systemClock{}

// IDGenerator supplies opaque unique identifiers (execution IDs, Map/Parallel
// branch trace IDs). The default wraps google/uuid; tests can substitute a
// deterministic sequence.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.New().String() }

// DefaultIDGenerator is the production IDGenerator.
var DefaultIDGenerator IDGenerator = uuidGenerator{}

// Sleeper performs a cooperative delay (§5.1: Wait, Retry delays are
// suspension points, not blocking calls that ignore cancellation). The
// default blocks on a timer or ctx cancellation, whichever comes first;
// tests substitute a Sleeper that returns immediately while still recording
// the requested duration, so Retry/Wait scenarios run at in-memory speed
// against a mocked clock (§8 S3).
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RealSleeper is the production Sleeper.
var RealSleeper Sleeper = realSleeper{}

// TraceKind classifies a TraceEntry (§3.1: "kind ∈ {enter, exit, error,
// retry, choice_match, suspend, resume}").
type TraceKind string

const (
	TraceEnter       TraceKind = "enter"
	TraceExit        TraceKind = "exit"
	TraceError       TraceKind = "error"
	TraceRetry       TraceKind = "retry"
	TraceChoiceMatch TraceKind = "choice_match"
	TraceSuspend     TraceKind = "suspend"
	TraceResume      TraceKind = "resume"
)

// TraceEntry records one event in the Context Object's "$$.Trace" history
// (§3.1, component F): state entry/exit plus the error, retry, choice-match,
// suspend, and resume events a run's testable properties assert on (§8).
type TraceEntry struct {
	Kind      TraceKind `json:"Kind"`
	StateName string    `json:"StateName"`
	EnteredAt time.Time `json:"EnteredAt"`
	ExitedAt  time.Time `json:"ExitedAt,omitempty"`
	Extras    Value     `json:"Extras,omitempty"`
}

// UsageTotals accumulates the `_tokens`/`_cost`/`_usage` accounting keys an
// agent invocation may return (§6.1), stripped from the document and rolled
// up here instead.
type UsageTotals struct {
	TotalTokens     int64
	TotalCostUSD    float64
	InvocationCount int64
}

// Add folds one invocation's reported usage into the running totals.
func (u *UsageTotals) Add(tokens int64, costUSD float64) {
	u.TotalTokens += tokens
	u.TotalCostUSD += costUSD
	u.InvocationCount++
}

// ExecutionContext is the engine's run-scoped companion to the state
// document: the "$$" context object plus the injected environment
// (component F). It is not part of the JSON document the workflow author
// sees through "$" and is never itself subject to InputPath/OutputPath.
type ExecutionContext struct {
	ExecutionID string
	StartedAt   time.Time
	Trace       []TraceEntry
	Usage       UsageTotals

	Clock   Clock
	Sleeper Sleeper
	RNG     *rand.Rand
	IDs     IDGenerator
	Metrics *Metrics
	Emitter emit.Emitter
}

// NewExecutionContext creates a run context for executionID, deriving a
// seeded RNG from it so that replaying the same execution ID reproduces the
// same sequence of jittered backoffs (§5.4). States.MathRandom without a
// seed argument does not use this RNG; it draws from a source seeded by the
// global math/rand generator, so those draws are not reproduced.
func NewExecutionContext(executionID string, clock Clock, sleeper Sleeper, ids IDGenerator) *ExecutionContext {
	if clock == nil {
		clock = SystemClock
	}
	if sleeper == nil {
		sleeper = RealSleeper
	}
	if ids == nil {
		ids = DefaultIDGenerator
	}
	return &ExecutionContext{
		ExecutionID: executionID,
		StartedAt:   clock.Now(),
		Clock:       clock,
		Sleeper:     sleeper,
		RNG:         rand.New(rand.NewSource(seedFromID(executionID))), //nolint:gosec // deterministic replay, not security
		IDs:         ids,
		Emitter:     emit.NewNullEmitter(),
	}
}

// emit forwards one observability event to ec.Emitter, falling back to a
// NullEmitter when none was wired so callers never need a nil-check.
func (ec *ExecutionContext) emit(stateName, msg string, meta map[string]any) {
	e := ec.Emitter
	if e == nil {
		e = emit.NewNullEmitter()
	}
	e.Emit(emit.Event{ExecutionID: ec.ExecutionID, StateName: stateName, Msg: msg, Meta: meta})
}

// seedFromID derives a reproducible int64 seed from an arbitrary execution
// ID string via its SHA-256 digest, so two runs started with the same ID
// draw identical pseudo-random sequences.
func seedFromID(id string) int64 {
	sum := sha256.Sum256([]byte(id))
	return int64(binary.BigEndian.Uint64(sum[:8])) //nolint:gosec // seed value, not a security-sensitive conversion
}

// contextObject renders the "$$" context object visible to path expressions
// and Parameters templates (§3.1): Execution metadata plus the state trace.
func (ec *ExecutionContext) contextObject(stateName string) Value {
	exec := EmptyObject().
		Set("Id", String(ec.ExecutionID)).
		Set("StartTime", String(ec.StartedAt.Format(time.RFC3339Nano)))

	trace := make([]Value, 0, len(ec.Trace))
	for _, t := range ec.Trace {
		entry := EmptyObject().
			Set("Kind", String(string(t.Kind))).
			Set("StateName", String(t.StateName)).
			Set("EnteredAt", String(t.EnteredAt.Format(time.RFC3339Nano)))
		if !t.ExitedAt.IsZero() {
			entry = entry.Set("ExitedAt", String(t.ExitedAt.Format(time.RFC3339Nano)))
		}
		if t.Extras.IsObject() || t.Extras.IsArray() {
			entry = entry.Set("Extras", t.Extras)
		}
		trace = append(trace, entry)
	}

	return EmptyObject().
		Set("Execution", exec).
		Set("State", EmptyObject().Set("Name", String(stateName))).
		Set("Trace", Array(trace...))
}

// enterState appends a trace entry for stateName and returns its index so
// exitState can later fill in ExitedAt.
func (ec *ExecutionContext) enterState(stateName string) int {
	ec.Trace = append(ec.Trace, TraceEntry{Kind: TraceEnter, StateName: stateName, EnteredAt: ec.Clock.Now()})
	ec.emit(stateName, "state_enter", nil)
	return len(ec.Trace) - 1
}

func (ec *ExecutionContext) exitState(idx int) {
	if idx >= 0 && idx < len(ec.Trace) {
		ec.Trace[idx].ExitedAt = ec.Clock.Now()
	}
	if idx >= 0 && idx < len(ec.Trace) {
		stateName := ec.Trace[idx].StateName
		ec.Trace = append(ec.Trace, TraceEntry{Kind: TraceExit, StateName: stateName, EnteredAt: ec.Clock.Now()})
		ec.emit(stateName, "state_exit", nil)
	}
}

// record appends a non-enter/exit event (error, retry, choice_match,
// suspend, resume) to the trace, carrying whatever detail that event kind
// needs in Extras (§8 testable properties assert on these), and forwards
// the same event to the wired Emitter.
func (ec *ExecutionContext) record(kind TraceKind, stateName string, extras Value) {
	ec.Trace = append(ec.Trace, TraceEntry{Kind: kind, StateName: stateName, EnteredAt: ec.Clock.Now(), Extras: extras})
	var meta map[string]any
	if extras.IsObject() {
		meta = map[string]any{"extras": extras.String()}
	}
	ec.emit(stateName, string(kind), meta)
}

// contextObjectForIteration builds the "$$" context object for one Map
// iteration, adding "$$.Map.Item.{Value,Index}" (§3.1, §4.3). The outer
// ExecutionContext is never mutated by this; it is populated only within
// the iteration's own sub-execution.
func (ec *ExecutionContext) contextObjectForIteration(stateName string, item Value, index int) Value {
	base := ec.contextObject(stateName)
	mapObj := EmptyObject().Set("Item", EmptyObject().Set("Value", item).Set("Index", Int(int64(index))))
	return base.Set("Map", mapObj)
}

// childExecutionContext derives an isolated per-iteration/per-branch
// ExecutionContext from parent: same Clock/Sleeper/IDs, but its own trace,
// usage totals, and a deterministically seeded RNG so concurrent iterations
// never race on parent.RNG (§5.3 "no shared writable state").
func childExecutionContext(parent *ExecutionContext, childID string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: childID,
		StartedAt:   parent.Clock.Now(),
		Clock:       parent.Clock,
		Sleeper:     parent.Sleeper,
		RNG:         rand.New(rand.NewSource(seedFromID(childID))), //nolint:gosec // deterministic replay, not security
		IDs:         parent.IDs,
		Metrics:     parent.Metrics,
		Emitter:     parent.Emitter,
	}
}

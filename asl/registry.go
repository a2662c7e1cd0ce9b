package asl

import (
	"context"
	"errors"
	"sync"
)

// AgentAPI is the contract a Task state invokes (§6.1): an opaque callable
// identified by name, given an already-shaped input object and an opaque
// pass-through config block, plus a callback context for deadlines,
// heartbeats, and cancellation.
//
// Returned objects may carry reserved accounting keys (_tokens, _cost,
// _usage); the caller (the Task state) strips them after folding them into
// ExecutionContext.Usage. Errors returned should be (or wrap) an
// *AgentError carrying a code, which AsWorkflowError keeps; any error
// without a code is normalized to States.TaskFailed by AsWorkflowError.
type AgentAPI interface {
	Invoke(ctx context.Context, input Value, config Value, call CallInfo) (Value, error)
}

// CallInfo is the callCtx record passed to an agent invocation (§6.1): the
// state and execution identity, the per-invocation deadline, and a
// heartbeat/cancellation surface.
type CallInfo struct {
	StateName   string
	ExecutionID string
	Deadline    float64 // seconds; 0 means no bound
	Heartbeat   func()
	Done        <-chan struct{}
}

// AgentError is the error shape an agent raises (§6.1): a code plus a human
// cause. AsWorkflowError passes the code through unchanged, whether or not
// it is one of the States.* or Agent.* codes.
type AgentError struct {
	Code  string
	Cause string
}

func (e *AgentError) Error() string { return e.Code + ": " + e.Cause }

func (e *AgentError) ErrorCode() string { return e.Code }

// ErrAgentNotRegistered is returned by AgentRegistry.Invoke when no agent is
// bound to the requested name.
var ErrAgentNotRegistered = errors.New("asl: agent not registered")

// AgentRegistry is the name-to-agent binding (component J, §4.1 step 4). It
// is read-only during an execution (§5 "No shared resources"): Register is
// only called during host setup, before any run begins.
type AgentRegistry interface {
	Register(name string, agent AgentAPI)
	Invoke(ctx context.Context, name string, input Value, config Value, call CallInfo) (Value, error)
}

// MapAgentRegistry is the default AgentRegistry: a concurrency-safe map from
// name to AgentAPI.
type MapAgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]AgentAPI
}

// NewMapAgentRegistry returns an empty registry ready for Register calls.
func NewMapAgentRegistry() *MapAgentRegistry {
	return &MapAgentRegistry{agents: make(map[string]AgentAPI)}
}

func (r *MapAgentRegistry) Register(name string, agent AgentAPI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[name] = agent
}

func (r *MapAgentRegistry) Invoke(ctx context.Context, name string, input Value, config Value, call CallInfo) (Value, error) {
	r.mu.RLock()
	agent, ok := r.agents[name]
	r.mu.RUnlock()
	if !ok {
		return Value{}, &AgentError{Code: CodeTaskFailed, Cause: ErrAgentNotRegistered.Error() + ": " + name}
	}
	return agent.Invoke(ctx, input, config, call)
}

// extractUsage pulls the reserved _tokens/_cost accounting keys out of an
// agent result (§4.1 step 5, §6.1), returning the stripped result alongside
// whatever was found.
func extractUsage(result Value) (stripped Value, tokens int64, cost float64) {
	stripped = result
	if !result.IsObject() {
		return stripped, 0, 0
	}
	if v, ok := result.Get("_tokens"); ok {
		tokens = v.Int64()
		stripped = stripped.Delete("_tokens")
	}
	if v, ok := result.Get("_cost"); ok {
		cost = v.Float64()
		stripped = stripped.Delete("_cost")
	}
	if _, ok := result.Get("_usage"); ok {
		stripped = stripped.Delete("_usage")
	}
	return stripped, tokens, cost
}

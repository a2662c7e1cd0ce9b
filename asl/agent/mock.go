package agent

import (
	"context"
	"sync"

	"github.com/asl-engine/asl"
	"github.com/asl-engine/asl/tool"
)

// MockAgent is a test asl.AgentAPI: a configurable sequence of responses
// plus call-history tracking, so a workflow's Task states can be exercised
// without a real provider. Grounded on the same pattern as a conventional
// mock chat model: canned responses, error injection, thread-safe call
// recording.
type MockAgent struct {
	// Responses returned in order; the last one repeats once exhausted.
	Responses []ChatOut

	// Err, if set, is returned instead of a response.
	Err error

	// Tools, if set, dispatches each response's ToolCalls against the
	// Task's Tools config block (§6.1) before the response is returned:
	// this is how a Task's Tools block actually drives tool.Registry.Call,
	// rather than the tool-calling surface staying unreachable from the
	// engine. A call naming a tool absent from both Tools and the
	// registry is skipped, not an error — providers describe tools they
	// support, not ones a given workflow has wired up.
	Tools *tool.Registry

	mu    sync.Mutex
	Calls []MockCall
	next  int
}

// MockCall records one Invoke call for test assertions.
type MockCall struct {
	Input  asl.Value
	Config asl.Value
}

func (m *MockAgent) Invoke(ctx context.Context, input asl.Value, config asl.Value, call asl.CallInfo) (asl.Value, error) {
	if ctx.Err() != nil {
		return asl.Value{}, ctx.Err()
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Input: input, Config: config})

	if m.Err != nil {
		m.mu.Unlock()
		return asl.Value{}, m.Err
	}

	var resp ChatOut
	if len(m.Responses) > 0 {
		idx := m.next
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		} else {
			m.next++
		}
		resp = m.Responses[idx]
	}
	m.mu.Unlock()

	out := ChatOutToValue(resp)
	if m.Tools != nil && len(resp.ToolCalls) > 0 {
		out = out.Set("toolResults", asl.Array(m.dispatchToolCalls(ctx, config, resp.ToolCalls)...))
	}
	return out, nil
}

// dispatchToolCalls runs each ToolCall the response named against m.Tools,
// restricted to the names the Task's Tools config block (§6.1) actually
// allows (a provider may describe tools a given workflow never registered).
func (m *MockAgent) dispatchToolCalls(ctx context.Context, config asl.Value, calls []ToolCall) []asl.Value {
	allowed := allowedToolNames(config)
	results := make([]asl.Value, 0, len(calls))
	for _, c := range calls {
		if !allowed[c.Name] {
			continue
		}
		entry := asl.EmptyObject().Set("name", asl.String(c.Name))
		toolOut, err := m.Tools.Call(ctx, c.Name, c.Input)
		if err != nil {
			results = append(results, entry.Set("error", asl.String(err.Error())))
			continue
		}
		output := asl.EmptyObject()
		for k, v := range toolOut {
			output = output.Set(k, valueOf(v))
		}
		results = append(results, entry.Set("output", output))
	}
	return results
}

// allowedToolNames reads the names out of a Tools config block's tool-spec
// array, the same {name, description, schema} shape ToolSpecsFromValue
// reads from a Task's input (§6.1).
func allowedToolNames(config asl.Value) map[string]bool {
	allowed := make(map[string]bool)
	tools, ok := config.Get("Tools")
	if !ok || !tools.IsArray() {
		return allowed
	}
	for _, t := range tools.Items() {
		if name, ok := t.Get("name"); ok && name.IsString() {
			allowed[name.Str()] = true
		}
	}
	return allowed
}

// CallCount returns the number of times Invoke has been called.
func (m *MockAgent) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/asl-engine/asl"
	"github.com/asl-engine/asl/agent"
)

func TestNewDefaultsModelName(t *testing.T) {
	a := New("key", "")
	if a.modelName == "" {
		t.Error("expected a default model name")
	}
}

func TestAgentInvoke(t *testing.T) {
	mock := &mockClient{response: "hello from gpt"}
	a := &Agent{client: mock, modelName: "gpt-test"}

	input := asl.EmptyObject().Set("prompt", asl.String("hi"))
	out, err := a.Invoke(context.Background(), input, asl.Null(), asl.CallInfo{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	text, _ := out.Get("text")
	if text.Str() != "hello from gpt" {
		t.Errorf("text = %q", text.Str())
	}
}

func TestAgentInvokeTranslatesRateLimit(t *testing.T) {
	mock := &mockClient{err: errors.New("429 rate limit exceeded")}
	a := &Agent{client: mock, modelName: "gpt-test"}

	_, err := a.Invoke(context.Background(), asl.EmptyObject(), asl.Null(), asl.CallInfo{})
	var agentErr *asl.AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected *asl.AgentError, got %T", err)
	}
	if agentErr.Code != "Agent.Throttled" {
		t.Errorf("Code = %q, want Agent.Throttled", agentErr.Code)
	}
}

func TestAgentInvokeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Agent{client: &mockClient{}, modelName: "gpt-test"}
	if _, err := a.Invoke(ctx, asl.EmptyObject(), asl.Null(), asl.CallInfo{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

type mockClient struct {
	response  string
	toolCalls []agent.ToolCall
	err       error
	callCount int
}

func (m *mockClient) createChatCompletion(_ context.Context, _ []agent.Message, _ []agent.ToolSpec) (agent.ChatOut, error) {
	m.callCount++
	if m.err != nil {
		return agent.ChatOut{}, m.err
	}
	return agent.ChatOut{Text: m.response, ToolCalls: m.toolCalls}, nil
}

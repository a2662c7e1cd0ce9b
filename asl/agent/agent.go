// Package agent provides asl.AgentAPI adapters for chat-oriented LLM
// providers, plus the shared Message/ToolSpec/ChatOut shapes and the
// Value<->shape conversions every provider adapter uses to interpret a
// Task state's opaque input/output.
//
// A Task state's input (§6.1) is opaque to the engine; these adapters
// impose one convention on it so a workflow author can drive any
// registered chat agent: an object with a "messages" array of
// {role, content} pairs and an optional "tools" array of
// {name, description, schema}. The returned Value carries "text",
// "toolCalls", and (when the provider reports it) "_tokens"/"_cost" for
// the engine's usage accounting (component J, §6.1).
package agent

import (
	"encoding/json"

	"github.com/asl-engine/asl"
)

// Role constants for Message.Role, aligned with the major providers'
// conventions.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    string
	Content string
}

// ToolSpec describes a tool a provider may call.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolCall is a provider's request to invoke a tool named Name with Input.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// ChatOut is a provider's response: generated text and/or tool calls, plus
// whatever token/cost usage the provider reported.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
	Tokens    int64
	CostUSD   float64
}

// MessagesFromValue reads the "messages" array out of input, defaulting a
// bare "prompt" string to a single user message when no messages array is
// present.
func MessagesFromValue(input asl.Value) []Message {
	if msgs, ok := input.Get("messages"); ok && msgs.IsArray() {
		result := make([]Message, 0, msgs.Len())
		for _, m := range msgs.Items() {
			role, _ := m.Get("role")
			content, _ := m.Get("content")
			result = append(result, Message{Role: role.Str(), Content: content.Str()})
		}
		return result
	}
	if prompt, ok := input.Get("prompt"); ok && prompt.IsString() {
		return []Message{{Role: RoleUser, Content: prompt.Str()}}
	}
	return nil
}

// ToolSpecsFromValue reads the optional "tools" array out of input.
func ToolSpecsFromValue(input asl.Value) []ToolSpec {
	tools, ok := input.Get("tools")
	if !ok || !tools.IsArray() {
		return nil
	}
	result := make([]ToolSpec, 0, tools.Len())
	for _, t := range tools.Items() {
		name, _ := t.Get("name")
		desc, _ := t.Get("description")
		spec := ToolSpec{Name: name.Str(), Description: desc.Str()}
		if schema, ok := t.Get("schema"); ok && schema.IsObject() {
			if raw, err := schema.MarshalJSON(); err == nil {
				_ = json.Unmarshal(raw, &spec.Schema)
			}
		}
		result = append(result, spec)
	}
	return result
}

// ChatOutToValue renders out as the Value a Task state's invoke() expects,
// including the reserved usage keys (registry.go's extractUsage strips
// these before the workflow document ever sees them).
func ChatOutToValue(out ChatOut) asl.Value {
	v := asl.EmptyObject().Set("text", asl.String(out.Text))
	if len(out.ToolCalls) > 0 {
		calls := make([]asl.Value, 0, len(out.ToolCalls))
		for _, c := range out.ToolCalls {
			call := asl.EmptyObject().Set("name", asl.String(c.Name))
			input := asl.EmptyObject()
			for k, val := range c.Input {
				input = input.Set(k, valueOf(val))
			}
			call = call.Set("input", input)
			calls = append(calls, call)
		}
		v = v.Set("toolCalls", asl.Array(calls...))
	}
	if out.Tokens > 0 {
		v = v.Set("_tokens", asl.Int(out.Tokens))
	}
	if out.CostUSD > 0 {
		v = v.Set("_cost", asl.Float(out.CostUSD))
	}
	return v
}

func valueOf(v any) asl.Value {
	switch t := v.(type) {
	case string:
		return asl.String(t)
	case bool:
		return asl.Bool(t)
	case float64:
		return asl.Float(t)
	case int:
		return asl.Int(int64(t))
	case int64:
		return asl.Int(t)
	default:
		return asl.Null()
	}
}

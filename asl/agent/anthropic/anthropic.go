// Package anthropic provides an asl.AgentAPI adapter for Anthropic's Claude
// API, registered under a name such as "anthropic" or "anthropic:claude-..."
// via asl.AgentRegistry.Register.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/asl-engine/asl"
	"github.com/asl-engine/asl/agent"
)

// Agent implements asl.AgentAPI for Claude models. A Task state's config is
// unused beyond what's carried in input; model/apiKey are fixed at
// construction, matching how the engine otherwise treats agents as
// pre-configured collaborators (component B, §3).
type Agent struct {
	apiKey    string
	modelName string
	maxTokens int64
	client    anthropicClient
}

// anthropicClient isolates the SDK call so tests can substitute a fake.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []agent.Message, tools []agent.ToolSpec, maxTokens int64) (agent.ChatOut, error)
}

// New returns an Agent for modelName (empty string uses a current default).
func New(apiKey, modelName string) *Agent {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Agent{
		apiKey:    apiKey,
		modelName: modelName,
		maxTokens: 4096,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

func (a *Agent) Invoke(ctx context.Context, input asl.Value, config asl.Value, call asl.CallInfo) (asl.Value, error) {
	if ctx.Err() != nil {
		return asl.Value{}, ctx.Err()
	}

	messages := agent.MessagesFromValue(input)
	tools := agent.ToolSpecsFromValue(input)
	systemPrompt, conversation := extractSystemPrompt(messages)

	if call.Heartbeat != nil {
		call.Heartbeat()
	}

	out, err := a.client.createMessage(ctx, systemPrompt, conversation, tools, a.maxTokens)
	if err != nil {
		var apiErr *anthropicError
		if errors.As(err, &apiErr) {
			return asl.Value{}, &asl.AgentError{Code: anthropicErrorCode(apiErr), Cause: apiErr.Error()}
		}
		return asl.Value{}, &asl.AgentError{Code: "Agent.InvokeFailed", Cause: err.Error()}
	}

	return agent.ChatOutToValue(out), nil
}

func extractSystemPrompt(messages []agent.Message) (string, []agent.Message) {
	var systemPrompt string
	conversation := make([]agent.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == agent.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return systemPrompt, conversation
}

// anthropicError preserves Anthropic's error taxonomy for anthropicErrorCode.
type anthropicError struct {
	Type    string
	Message string
}

func (e *anthropicError) Error() string { return e.Type + ": " + e.Message }

func anthropicErrorCode(err *anthropicError) string {
	switch err.Type {
	case "rate_limit_error", "overloaded_error":
		return "Agent.Throttled"
	case "authentication_error", "permission_error":
		return "Agent.Unauthorized"
	default:
		return "Agent.InvokeFailed"
	}
}

// defaultClient wraps the official Anthropic SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []agent.Message, tools []agent.ToolSpec, maxTokens int64) (agent.ChatOut, error) {
	if c.apiKey == "" {
		return agent.ChatOut{}, errors.New("anthropic API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertMessages(messages),
		MaxTokens: maxTokens,
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return agent.ChatOut{}, fmt.Errorf("anthropic API error: %w", err)
	}

	return convertResponse(resp), nil
}

func convertMessages(messages []agent.Message) []anthropicsdk.MessageParam {
	result := make([]anthropicsdk.MessageParam, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case agent.RoleAssistant:
			result[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content))
		default:
			result[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content))
		}
	}
	return result
}

func convertTools(tools []agent.ToolSpec) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		var required []string
		if t.Schema != nil {
			if props, ok := t.Schema["properties"]; ok {
				properties = props
			}
			if req, ok := t.Schema["required"].([]string); ok {
				required = req
			} else if req, ok := t.Schema["required"].([]interface{}); ok {
				required = make([]string, 0, len(req))
				for _, v := range req {
					if s, ok := v.(string); ok {
						required = append(required, s)
					}
				}
			}
		}
		result[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
			},
		}
	}
	return result
}

func convertResponse(resp *anthropicsdk.Message) agent.ChatOut {
	out := agent.ChatOut{
		Tokens: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				Name:  b.Name,
				Input: convertToolInput(b.Input),
			})
		}
	}
	return out
}

func convertToolInput(input interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"_raw": input}
}

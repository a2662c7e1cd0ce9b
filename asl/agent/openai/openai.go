// Package openai provides an asl.AgentAPI adapter for OpenAI's Chat
// Completions API.
//
// Unlike the standalone chat-model wrapper this is descended from, this
// adapter does not retry transient errors itself: the engine's own
// Retry/Catch state machinery (component D, §6.4) already owns that
// decision for every Task invocation, with backoff and jitter policy set
// per state rather than hardcoded per provider. Retrying here too would
// double the delay and hide transient failures from the workflow author's
// Retry configuration.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/asl-engine/asl"
	"github.com/asl-engine/asl/agent"
)

// Agent implements asl.AgentAPI for OpenAI chat models.
type Agent struct {
	apiKey    string
	modelName string
	client    openaiClient
}

type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error)
}

// New returns an Agent for modelName (empty string uses a current default).
func New(apiKey, modelName string) *Agent {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &Agent{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

func (a *Agent) Invoke(ctx context.Context, input asl.Value, config asl.Value, call asl.CallInfo) (asl.Value, error) {
	if ctx.Err() != nil {
		return asl.Value{}, ctx.Err()
	}

	messages := agent.MessagesFromValue(input)
	tools := agent.ToolSpecsFromValue(input)

	if call.Heartbeat != nil {
		call.Heartbeat()
	}

	out, err := a.client.createChatCompletion(ctx, messages, tools)
	if err != nil {
		code := "Agent.InvokeFailed"
		if isRateLimitError(err) {
			code = "Agent.Throttled"
		}
		return asl.Value{}, &asl.AgentError{Code: code, Cause: err.Error()}
	}

	return agent.ChatOutToValue(out), nil
}

func isRateLimitError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "rate limit") ||
		strings.Contains(err.Error(), "429")
}

// defaultClient wraps the official OpenAI SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	if c.apiKey == "" {
		return agent.ChatOut{}, errors.New("OpenAI API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.ChatOut{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	return convertResponse(resp), nil
}

func convertMessages(messages []agent.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			result[i] = openaisdk.SystemMessage(msg.Content)
		case agent.RoleAssistant:
			result[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			result[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return result
}

func convertTools(tools []agent.ToolSpec) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		}
	}
	return result
}

func convertResponse(resp *openaisdk.ChatCompletion) agent.ChatOut {
	out := agent.ChatOut{Tokens: resp.Usage.TotalTokens}
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]agent.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = agent.ToolCall{
				Name:  tc.Function.Name,
				Input: parseToolInput(tc.Function.Arguments),
			}
		}
	}
	return out
}

func parseToolInput(jsonStr string) map[string]interface{} {
	if jsonStr == "" {
		return nil
	}
	return map[string]interface{}{"_raw": jsonStr}
}

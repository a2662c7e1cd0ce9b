// Package google provides an asl.AgentAPI adapter for Google's Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/asl-engine/asl"
	"github.com/asl-engine/asl/agent"
)

// Agent implements asl.AgentAPI for Gemini models.
type Agent struct {
	apiKey    string
	modelName string
	client    googleClient
}

type googleClient interface {
	generateContent(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error)
}

// New returns an Agent for modelName (empty string uses a current default).
func New(apiKey, modelName string) *Agent {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
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

	out, err := a.client.generateContent(ctx, messages, tools)
	if err != nil {
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return asl.Value{}, &asl.AgentError{Code: "Agent.ContentBlocked", Cause: safetyErr.Error()}
		}
		return asl.Value{}, &asl.AgentError{Code: "Agent.InvokeFailed", Cause: err.Error()}
	}

	return agent.ChatOutToValue(out), nil
}

// SafetyFilterError represents a Gemini safety filter block.
type SafetyFilterError struct {
	reason   string
	category string
}

func (e *SafetyFilterError) Error() string    { return "content blocked by safety filter: " + e.category }
func (e *SafetyFilterError) Category() string { return e.category }
func (e *SafetyFilterError) Reason() string   { return e.reason }

// defaultClient wraps the official Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []agent.Message, tools []agent.ToolSpec) (agent.ChatOut, error) {
	if c.apiKey == "" {
		return agent.ChatOut{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return agent.ChatOut{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer client.Close()

	genModel := client.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return agent.ChatOut{}, fmt.Errorf("google API error: %w", err)
	}

	return convertResponse(resp), nil
}

func convertMessages(messages []agent.Message) []genai.Part {
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func convertTools(tools []agent.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchemaToGenai(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchemaToGenai(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}
	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]interface{}); ok {
		result.Required = make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	return result
}

func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) agent.ChatOut {
	out := agent.ChatOut{}
	if resp.UsageMetadata != nil {
		out.Tokens = int64(resp.UsageMetadata.TotalTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return out
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out
	}
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out
}

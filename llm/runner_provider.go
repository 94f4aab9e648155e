package llm

import (
	"context"
	"fmt"

	"github.com/voocel/litellm"
	"github.com/voocel/litellm/providers"
	"github.com/voocel/agentcore/schema"
)

// RunnerModel adapts litellm to the ChatModel interface (Request/Response)
// consumed by the Runner and its middleware chain.
type RunnerModel struct {
	client *litellm.Client
	model  string
	tools  bool
}

// NewRunnerModel creates a ChatModel backed by litellm for use with runner.Runner.
func NewRunnerModel(model string, provider providers.Provider, toolCapable bool, options ...litellm.ClientOption) (*RunnerModel, error) {
	client, err := litellm.New(provider, options...)
	if err != nil {
		return nil, fmt.Errorf("llm: create litellm client: %w", err)
	}
	return &RunnerModel{client: client, model: model, tools: toolCapable}, nil
}

// NewRunnerOpenAIModel creates an OpenAI-backed ChatModel for the Runner.
func NewRunnerOpenAIModel(model, apiKey string, baseURL ...string) (*RunnerModel, error) {
	cfg := providers.ProviderConfig{APIKey: apiKey}
	if len(baseURL) > 0 {
		cfg.BaseURL = baseURL[0]
	}
	return NewRunnerModel(model, providers.NewOpenAI(cfg), true)
}

// NewRunnerAnthropicModel creates an Anthropic-backed ChatModel for the Runner.
func NewRunnerAnthropicModel(model, apiKey string, baseURL ...string) (*RunnerModel, error) {
	cfg := providers.ProviderConfig{APIKey: apiKey}
	if len(baseURL) > 0 {
		cfg.BaseURL = baseURL[0]
	}
	return NewRunnerModel(model, providers.NewAnthropic(cfg), true)
}

// SupportsTools reports whether the underlying model accepts tool definitions.
func (m *RunnerModel) SupportsTools() bool {
	return m.tools
}

// Generate sends a Request to the model and returns its Response.
func (m *RunnerModel) Generate(ctx context.Context, req *Request) (*Response, error) {
	ltReq := m.buildLiteLLMRequest(req)

	ltResp, err := m.client.Chat(ctx, ltReq)
	if err != nil {
		return nil, fmt.Errorf("llm: chat failed: %w", err)
	}

	return &Response{
		Message: runnerMessageFromLiteLLM(ltResp),
		Usage: TokenUsage{
			PromptTokens:     ltResp.Usage.PromptTokens,
			CompletionTokens: ltResp.Usage.CompletionTokens,
			TotalTokens:      ltResp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateStream streams deltas for a Request as schema.StreamEvent values.
func (m *RunnerModel) GenerateStream(ctx context.Context, req *Request) (<-chan schema.StreamEvent, error) {
	ltReq := m.buildLiteLLMRequest(req)

	stream, err := m.client.Stream(ctx, ltReq)
	if err != nil {
		return nil, fmt.Errorf("llm: stream failed: %w", err)
	}

	events := make(chan schema.StreamEvent, 64)
	go func() {
		defer close(events)
		defer stream.Close()

		var content string
		for {
			chunk, err := stream.Next()
			if err != nil {
				break
			}
			if chunk == nil {
				continue
			}
			if chunk.Content != "" {
				content += chunk.Content
				events <- schema.NewTokenEvent(chunk.Content, chunk.Content, "")
			}
		}
		_ = content
	}()

	return events, nil
}

func (m *RunnerModel) buildLiteLLMRequest(req *Request) *litellm.Request {
	messages := make([]litellm.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		lm := litellm.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == schema.RoleTool && len(msg.Metadata) > 0 {
			if id, ok := msg.Metadata["tool_call_id"].(string); ok {
				lm.ToolCallID = id
			}
		}
		for _, tc := range msg.ToolCalls {
			lm.ToolCalls = append(lm.ToolCalls, litellm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: litellm.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Args),
				},
			})
		}
		messages = append(messages, lm)
	}

	temperature := req.Temperature
	maxTokens := req.MaxTokens
	ltReq := &litellm.Request{
		Model:       m.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	if len(req.Tools) > 0 {
		ltReq.Tools = make([]litellm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			ltReq.Tools = append(ltReq.Tools, litellm.Tool{
				Type: "function",
				Function: litellm.FunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		choice := "auto"
		if req.ToolChoice != nil && req.ToolChoice.Type != "" {
			choice = req.ToolChoice.Type
		}
		ltReq.ToolChoice = choice
	}

	return ltReq
}

func runnerMessageFromLiteLLM(resp *litellm.Response) schema.Message {
	msg := schema.Message{
		Role:    schema.RoleAssistant,
		Content: resp.Content,
	}
	for _, tc := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: []byte(tc.Function.Arguments),
		})
	}
	return msg
}

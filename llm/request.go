package llm

import (
	"context"

	"github.com/voocel/agentcore/schema"
)

// TokenUsage reports token accounting for a single completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolSpec describes a tool exposed to a model in a Request.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolChoiceOption controls whether and how a model must call a tool.
type ToolChoiceOption struct {
	Type string `json:"type"` // "auto", "none", or "required"
	Name string `json:"name,omitempty"`
}

// ResponseFormat requests structured output from a model.
type ResponseFormat struct {
	Type       string                 `json:"type"` // "text", "json_object", or "json_schema"
	JSONSchema map[string]interface{} `json:"json_schema,omitempty"`
	Strict     *bool                  `json:"strict,omitempty"`
}

// Request is the provider-agnostic completion request passed to a ChatModel.
type Request struct {
	Messages       []schema.Message
	Tools          []ToolSpec
	ToolChoice     *ToolChoiceOption
	ResponseFormat *ResponseFormat
	Temperature    float64
	MaxTokens      int
}

// Response is the provider-agnostic completion result returned by a ChatModel.
type Response struct {
	Message schema.Message
	Usage   TokenUsage
}

// ChatModel is the contract a Runner calls to produce completions. A single
// request/response pair keeps middleware (retry, metrics, logging) able to
// wrap the call without knowing about any particular provider's wire format.
type ChatModel interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	GenerateStream(ctx context.Context, req *Request) (<-chan schema.StreamEvent, error)
	SupportsTools() bool
}

package agency

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voocel/agentcore/operator"
)

// ToolHandler is the handler function type for tools, named by the calling
// agent rather than holding a direct reference to it.
type ToolHandler func(ctx context.Context, params map[string]interface{}, agentName string) (string, error)

// Tool represents a tool that agents can use
type Tool struct {
	Name        string
	Description string
	Handler     ToolHandler
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Content string `json:"content"`
}

// UnmarshalParams unmarshals a JSON string into a parameter map
func UnmarshalParams(paramsJSON string) (map[string]interface{}, error) {
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// SendMessageTool lets one agent dispatch a message to another, subject to
// the agency's FlowChart permissions.
type SendMessageTool struct {
	agency *Agency
	sender string
}

// NewSendMessageTool creates a send message tool
func NewSendMessageTool(agency *Agency, sender string) *SendMessageTool {
	return &SendMessageTool{
		agency: agency,
		sender: sender,
	}
}

func (t *SendMessageTool) Name() string {
	return "send_message"
}

func (t *SendMessageTool) Description() string {
	return "Send a message to other agents"
}

// SendMessageParams parameters for the send message tool
type SendMessageParams struct {
	Recipient string `json:"recipient" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// Execute dispatches the message to its recipient and returns the reply.
// Dispatch through orchestrator.Orchestrator is synchronous, so there is no
// separate wait-for-reply step.
func (t *SendMessageTool) Execute(ctx context.Context, paramsJSON string) (string, error) {
	var params SendMessageParams
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return "", err
	}

	if _, err := t.agency.GetAgent(params.Recipient); err != nil {
		return "", err
	}

	if !t.agency.FlowChart.CanCommunicate(t.sender, params.Recipient) {
		return "", fmt.Errorf("agent %s is not allowed to communicate with %s", t.sender, params.Recipient)
	}

	out, err := t.agency.Orchestrator.Dispatch(ctx, params.Recipient, operator.OperatorInput{
		Message: params.Content,
		Trigger: operator.TriggerSignal,
		Metadata: map[string]any{
			"sender": t.sender,
		},
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Reply from %s: %s", params.Recipient, out.Message), nil
}

// GetAvailableRecipientsTool tool for getting available communication recipients
type GetAvailableRecipientsTool struct {
	agency *Agency
	sender string
}

// NewGetAvailableRecipientsTool creates a tool for getting available communication recipients
func NewGetAvailableRecipientsTool(agency *Agency, sender string) *GetAvailableRecipientsTool {
	return &GetAvailableRecipientsTool{
		agency: agency,
		sender: sender,
	}
}

func (t *GetAvailableRecipientsTool) Name() string {
	return "get_available_recipients"
}

func (t *GetAvailableRecipientsTool) Description() string {
	return "Get all other agents the current agent can communicate with"
}

func (t *GetAvailableRecipientsTool) Execute(ctx context.Context, paramsJSON string) (string, error) {
	recipients := t.agency.FlowChart.GetReceivers(t.sender)

	if len(recipients) == 0 {
		return "No agents available for communication", nil
	}

	result := "Available agents for communication:\n"
	for _, recipient := range recipients {
		if _, err := t.agency.GetAgent(recipient); err == nil {
			result += fmt.Sprintf("- %s\n", recipient)
		}
	}

	return result, nil
}

// SendMessage dispatches content to agentID and returns its reply.
func (a *Agency) SendMessage(ctx context.Context, agentID string, content string) (string, error) {
	if _, err := a.GetAgent(agentID); err != nil {
		return "", err
	}

	out, err := a.Orchestrator.Dispatch(ctx, agentID, operator.OperatorInput{
		Message: content,
		Trigger: operator.TriggerSignal,
	})
	if err != nil {
		return "", err
	}

	return out.Message, nil
}

// GetAgentInfo gets information about an agent
func (a *Agency) GetAgentInfo(ctx context.Context, agentID string) (string, error) {
	if _, err := a.GetAgent(agentID); err != nil {
		return "", err
	}

	info := map[string]interface{}{
		"id": agentID,
	}

	jsonData, err := json.Marshal(info)
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

package hitl

import (
	"context"
	"fmt"
	"time"

	"github.com/voocel/agentcore/runner"
	"github.com/voocel/agentcore/runtime"
	"github.com/voocel/agentcore/schema"
)

// ToolCallMiddleware gates tool execution on human approval. It plugs into a
// runner.Runner as a BeforeTool hook, the same way middleware.ToolCapabilityPolicy
// does for capability checks.
type ToolCallMiddleware struct {
	manager *Manager
	timeout time.Duration
}

// NewToolCallMiddleware creates a tool call approval middleware.
func NewToolCallMiddleware(manager *Manager, timeout time.Duration) *ToolCallMiddleware {
	return &ToolCallMiddleware{manager: manager, timeout: timeout}
}

func (m *ToolCallMiddleware) BeforeTool(ctx context.Context, state *runner.ToolState) error {
	if m == nil || m.manager == nil || state == nil || state.Call == nil {
		return nil
	}

	rtCtx := runtime.NewContext(ctx, string(state.RunID), string(state.SpanID))
	approval, err := m.manager.CheckApproval(rtCtx, TriggerBeforeToolCall, *state.Call)
	if err != nil {
		return fmt.Errorf("hitl: check tool approval: %w", err)
	}
	if approval == nil {
		return nil
	}

	decision, err := m.manager.WaitForDecision(approval.ID, m.timeout)
	if err != nil {
		return fmt.Errorf("hitl: wait for tool approval: %w", err)
	}

	switch decision.DecisionType {
	case DecisionReject:
		return fmt.Errorf("hitl: tool call %q rejected by %s: %s", state.Call.Name, decision.ApprovedBy, decision.Reason)
	case DecisionModify:
		if args, ok := decision.ModifiedData["args"].([]byte); ok {
			state.Call.Args = args
		}
	}
	return nil
}

// HandoffMiddleware gates agent-to-agent handoffs on human approval. It plugs
// into a runner.Runner as an AfterLLM hook and inspects the turn's response
// for a handoff payload the way multi.extractHandoff does.
type HandoffMiddleware struct {
	manager *Manager
	timeout time.Duration
}

// NewHandoffMiddleware creates a handoff approval middleware.
func NewHandoffMiddleware(manager *Manager, timeout time.Duration) *HandoffMiddleware {
	return &HandoffMiddleware{manager: manager, timeout: timeout}
}

func (m *HandoffMiddleware) AfterLLM(ctx context.Context, state *runner.State) error {
	if m == nil || m.manager == nil || state == nil {
		return nil
	}

	handoff := extractHandoff(state.Response)
	if handoff == nil || handoff.Target == "" {
		return nil
	}

	rtCtx := runtime.NewContext(ctx, string(state.RunID), string(state.StepID))
	approval, err := m.manager.CheckApproval(rtCtx, TriggerBeforeHandoff, *handoff)
	if err != nil {
		return fmt.Errorf("hitl: check handoff approval: %w", err)
	}
	if approval == nil {
		return nil
	}

	decision, err := m.manager.WaitForDecision(approval.ID, m.timeout)
	if err != nil {
		return fmt.Errorf("hitl: wait for handoff approval: %w", err)
	}
	if decision.DecisionType == DecisionReject {
		return fmt.Errorf("hitl: handoff to %q rejected by %s: %s", handoff.Target, decision.ApprovedBy, decision.Reason)
	}
	return nil
}

func extractHandoff(msg schema.Message) *schema.Handoff {
	if msg.Metadata != nil {
		if value, ok := msg.Metadata["handoff"]; ok {
			if h := schema.HandoffFromInterface(value); h != nil {
				return h
			}
		}
	}
	return schema.ParseHandoff(msg.Content)
}

var _ runner.BeforeTool = (*ToolCallMiddleware)(nil)
var _ runner.AfterLLM = (*HandoffMiddleware)(nil)

// CostThresholdPolicy creates a policy that triggers approval when cost exceeds threshold
func CostThresholdPolicy(threshold float64, timeout time.Duration) PolicyConfig {
	return PolicyConfig{
		Trigger: TriggerCostThreshold,
		Condition: func(ctx runtime.Context, data interface{}) bool {
			if cost, ok := data.(float64); ok {
				return cost > threshold
			}
			return false
		},
		Priority:  8,
		Timeout:   timeout,
		Approvers: []string{"admin"},
	}
}

// HighRiskToolPolicy creates a policy for high-risk tools
func HighRiskToolPolicy(riskTools []string, timeout time.Duration) PolicyConfig {
	return PolicyConfig{
		Trigger: TriggerBeforeToolCall,
		Condition: func(ctx runtime.Context, data interface{}) bool {
			if toolCall, ok := data.(schema.ToolCall); ok {
				for _, riskTool := range riskTools {
					if toolCall.Name == riskTool {
						return true
					}
				}
			}
			return false
		},
		Priority:  9,
		Timeout:   timeout,
		Approvers: []string{"security_team"},
	}
}

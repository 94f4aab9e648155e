package operator

import (
	"context"
	"errors"
	"time"

	"github.com/voocel/agentcore"
	"github.com/voocel/litellm"
)

// SingleShot is the cheap Operator: exactly one inference call, no tool
// loop, no state read/write, no hooks beyond whatever the caller wraps it
// with externally. It exists for classification, extraction, and
// summarization tasks that don't need the full ReAct machinery but still
// want to be interchangeable with it through the Operator boundary.
// TurnsUsed is always 1; ExitReason is always Complete, since a single
// inference call has nothing left to loop-guard.
type SingleShot struct {
	Model        agentcore.ChatModel
	SystemPrompt string
}

func NewSingleShot(model agentcore.ChatModel, systemPrompt string) *SingleShot {
	return &SingleShot{Model: model, SystemPrompt: systemPrompt}
}

// Execute implements Operator.
func (s *SingleShot) Execute(ctx context.Context, input OperatorInput) (OperatorOutput, *OperatorError) {
	start := time.Now()

	systemPrompt := s.SystemPrompt
	if input.Config != nil && input.Config.SystemAddendum != "" {
		systemPrompt = systemPrompt + "\n" + input.Config.SystemAddendum
	}

	messages := []agentcore.Message{agentcore.UserMsg(input.Message)}
	if systemPrompt != "" {
		messages = append([]agentcore.Message{agentcore.SystemMsg(systemPrompt)}, messages...)
	}

	resp, err := s.Model.Generate(ctx, messages, nil)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return OperatorOutput{}, NewOperatorError(OperatorErrorCancelled, err)
		case litellm.IsRetryableError(err):
			return OperatorOutput{}, NewOperatorError(OperatorErrorRetryable, err)
		default:
			return OperatorOutput{}, NewOperatorError(OperatorErrorModel, err)
		}
	}

	meta := OperatorMetadata{TurnsUsed: 1, Duration: time.Since(start)}
	if resp.Message.Usage != nil {
		meta.TokensIn = resp.Message.Usage.Input
		meta.TokensOut = resp.Message.Usage.Output
	}

	return OperatorOutput{
		Message:    resp.Message.TextContent(),
		ExitReason: ExitReason{Kind: ExitComplete},
		Metadata:   meta,
	}, nil
}

package strategy

import (
	"context"
	"fmt"
	"strings"

	contextpkg "github.com/voocel/agentcore/context"
)

// ToolResultClearedPlaceholder replaces the content of a cleared tool
// result message.
const ToolResultClearedPlaceholder = "[tool result cleared]"

// SummaryPrefix marks a message produced by SummarizationStrategy so a
// caller (or a human reading a transcript) can tell synthesized history
// apart from what was actually said.
const SummaryPrefix = "[Summary of earlier conversation]\n"

// SlidingWindowStrategy keeps only the most recent Window non-system
// messages, dropping everything older. System messages are never dropped:
// they carry the operator's persistent instructions, not conversation
// history that grows unbounded.
type SlidingWindowStrategy struct {
	BaseStrategy
	Window int
}

func NewSlidingWindowStrategy(window int) *SlidingWindowStrategy {
	return &SlidingWindowStrategy{
		BaseStrategy: BaseStrategy{
			name:        "sliding_window",
			priority:    50,
			description: fmt.Sprintf("keep the most recent %d messages", window),
		},
		Window: window,
	}
}

func (s *SlidingWindowStrategy) Apply(ctx context.Context, state *contextpkg.ContextState) (*contextpkg.ContextState, error) {
	if s.Window <= 0 {
		return state, nil
	}
	out := state.Copy()
	system, rest := partitionSystem(out.Messages)
	if len(rest) > s.Window {
		rest = rest[len(rest)-s.Window:]
	}
	out.Messages = append(append([]contextpkg.Message{}, system...), rest...)
	return out, nil
}

// ToolResultClearingStrategy replaces the content of tool-result messages
// older than the most recent Keep with ToolResultClearedPlaceholder. The
// message stays in history — only its content is cleared — so turn
// structure and tool-call pairing survive even after clearing.
type ToolResultClearingStrategy struct {
	BaseStrategy
	Keep int
}

func NewToolResultClearingStrategy(keep int) *ToolResultClearingStrategy {
	return &ToolResultClearingStrategy{
		BaseStrategy: BaseStrategy{
			name:        "tool_result_clearing",
			priority:    60,
			description: fmt.Sprintf("clear all but the most recent %d tool results", keep),
		},
		Keep: keep,
	}
}

func (s *ToolResultClearingStrategy) Apply(ctx context.Context, state *contextpkg.ContextState) (*contextpkg.ContextState, error) {
	out := state.Copy()
	var toolIndices []int
	for i, m := range out.Messages {
		if m.Role == "tool" {
			toolIndices = append(toolIndices, i)
		}
	}
	clearCount := len(toolIndices) - s.Keep
	if clearCount <= 0 {
		return out, nil
	}
	for _, idx := range toolIndices[:clearCount] {
		out.Messages[idx].Content = ToolResultClearedPlaceholder
	}
	return out, nil
}

// SummarizationStrategy collapses every non-system message beyond the most
// recent Threshold into one synthetic message prefixed with SummaryPrefix,
// replacing them in place ahead of the preserved recent messages.
// Summarize, if nil, joins "role: content" lines — callers that want an
// LLM-produced summary supply their own.
type SummarizationStrategy struct {
	BaseStrategy
	Threshold int
	Summarize func([]contextpkg.Message) string
}

func NewSummarizationStrategy(threshold int) *SummarizationStrategy {
	return &SummarizationStrategy{
		BaseStrategy: BaseStrategy{
			name:        "summarization",
			priority:    40,
			description: fmt.Sprintf("summarize messages beyond the most recent %d", threshold),
		},
		Threshold: threshold,
	}
}

func (s *SummarizationStrategy) Apply(ctx context.Context, state *contextpkg.ContextState) (*contextpkg.ContextState, error) {
	out := state.Copy()
	system, rest := partitionSystem(out.Messages)
	if s.Threshold <= 0 || len(rest) <= s.Threshold {
		return out, nil
	}

	cut := len(rest) - s.Threshold
	older, recent := rest[:cut], rest[cut:]
	summarize := s.Summarize
	if summarize == nil {
		summarize = joinAsSummary
	}
	summary := contextpkg.Message{
		Role:      "assistant",
		Content:   SummaryPrefix + summarize(older),
		Timestamp: older[len(older)-1].Timestamp,
	}

	merged := append([]contextpkg.Message{}, system...)
	merged = append(merged, summary)
	merged = append(merged, recent...)
	out.Messages = merged
	return out, nil
}

func joinAsSummary(msgs []contextpkg.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

func partitionSystem(messages []contextpkg.Message) (system, rest []contextpkg.Message) {
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}
	return system, rest
}

// ThresholdComposite runs Strategies, in the given order, only when the
// incoming state's message count exceeds Threshold; otherwise it leaves
// the state untouched. This is what makes a composite monotonic: a state
// already at or under budget is never touched, and a state over budget
// only ever shrinks — it never gains messages by being composited.
type ThresholdComposite struct {
	BaseStrategy
	Threshold  int
	Strategies []ContextStrategy
}

func NewThresholdComposite(threshold int, strategies ...ContextStrategy) *ThresholdComposite {
	return &ThresholdComposite{
		BaseStrategy: BaseStrategy{
			name:        "threshold_composite",
			priority:    calculateCompositePriority(strategies),
			description: fmt.Sprintf("apply %d strategies once message count exceeds %d", len(strategies), threshold),
		},
		Threshold:  threshold,
		Strategies: strategies,
	}
}

func (t *ThresholdComposite) Apply(ctx context.Context, state *contextpkg.ContextState) (*contextpkg.ContextState, error) {
	if len(state.Messages) <= t.Threshold {
		return state, nil
	}
	current := state.Copy()
	for _, s := range t.Strategies {
		next, err := s.Apply(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("threshold composite: strategy %s failed: %w", s.Name(), err)
		}
		current = next
	}
	return current, nil
}

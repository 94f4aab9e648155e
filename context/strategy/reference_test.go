package strategy

import (
	"context"
	"testing"
	"time"

	contextpkg "github.com/voocel/agentcore/context"
)

func msg(role, content string, offset time.Duration) contextpkg.Message {
	return contextpkg.Message{Role: role, Content: content, Timestamp: time.Unix(0, 0).Add(offset)}
}

func newState(messages ...contextpkg.Message) *contextpkg.ContextState {
	s := contextpkg.NewContextState("thread-1", "agent-1")
	s.Messages = messages
	return s
}

func TestToolResultClearingThenSlidingWindow(t *testing.T) {
	state := newState(
		msg("system", "you are helpful", 0),
		msg("user", "what's 2+2?", time.Second),
		msg("assistant", "calling tool", 2*time.Second),
		msg("tool", "4", 3*time.Second),
		msg("user", "what's 3+3?", 4*time.Second),
		msg("assistant", "calling tool", 5*time.Second),
		msg("tool", "6", 6*time.Second),
		msg("assistant", "the sum is 10", 7*time.Second),
	)

	composite := NewThresholdComposite(0,
		NewToolResultClearingStrategy(1),
		NewSlidingWindowStrategy(3),
	)

	out, err := composite.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var nonSystem int
	var sawClearedPlaceholder bool
	for _, m := range out.Messages {
		if m.Role != "system" {
			nonSystem++
		}
		if m.Content == ToolResultClearedPlaceholder {
			sawClearedPlaceholder = true
		}
	}
	if nonSystem != 3 {
		t.Fatalf("non-system message count = %d, want 3: %+v", nonSystem, out.Messages)
	}
	if sawClearedPlaceholder {
		t.Fatalf("cleared tool result should have fallen out of the sliding window, got %+v", out.Messages)
	}
	if out.Messages[len(out.Messages)-1].Content != "the sum is 10" {
		t.Fatalf("last message = %+v, want the final assistant reply", out.Messages[len(out.Messages)-1])
	}
}

func TestToolResultClearingPlaceholder(t *testing.T) {
	state := newState(
		msg("user", "a", 0),
		msg("tool", "old result", time.Second),
		msg("user", "b", 2*time.Second),
		msg("tool", "new result", 3*time.Second),
	)

	out, err := NewToolResultClearingStrategy(1).Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Messages[1].Content != ToolResultClearedPlaceholder {
		t.Fatalf("older tool result = %q, want placeholder", out.Messages[1].Content)
	}
	if out.Messages[3].Content != "new result" {
		t.Fatalf("most recent tool result should survive unchanged, got %q", out.Messages[3].Content)
	}
}

func TestSummarizationPrefix(t *testing.T) {
	state := newState(
		msg("user", "one", 0),
		msg("assistant", "two", time.Second),
		msg("user", "three", 2*time.Second),
		msg("assistant", "four", 3*time.Second),
	)

	out, err := NewSummarizationStrategy(1).Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("message count = %d, want 2 (summary + 1 kept)", len(out.Messages))
	}
	if out.Messages[0].Content[:len(SummaryPrefix)] != SummaryPrefix {
		t.Fatalf("summary message = %q, want prefix %q", out.Messages[0].Content, SummaryPrefix)
	}
	if out.Messages[1].Content != "four" {
		t.Fatalf("kept message = %q, want four", out.Messages[1].Content)
	}
}

// TestCompositeMonotonicity checks that a ThresholdComposite never grows a
// state's message count, regardless of how many messages go in.
func TestCompositeMonotonicity(t *testing.T) {
	composite := NewThresholdComposite(2,
		NewToolResultClearingStrategy(1),
		NewSlidingWindowStrategy(2),
	)

	for n := 0; n <= 10; n++ {
		messages := make([]contextpkg.Message, 0, n)
		for i := 0; i < n; i++ {
			role := "user"
			if i%3 == 0 {
				role = "tool"
			}
			messages = append(messages, msg(role, "m", time.Duration(i)*time.Second))
		}
		state := newState(messages...)

		out, err := composite.Apply(context.Background(), state)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(out.Messages) > len(state.Messages) {
			t.Fatalf("n=%d: composite grew message count from %d to %d", n, len(state.Messages), len(out.Messages))
		}
	}
}

func TestThresholdCompositeNoopBelowThreshold(t *testing.T) {
	composite := NewThresholdComposite(10, NewSlidingWindowStrategy(1))
	state := newState(msg("user", "a", 0), msg("user", "b", time.Second))

	out, err := composite.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("message count = %d, want 2 (below threshold, untouched)", len(out.Messages))
	}
}

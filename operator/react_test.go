package operator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/voocel/agentcore"
	"github.com/voocel/agentcore/hook"
	"github.com/voocel/agentcore/state"
)

// fakeModel replays a fixed queue of responses, one per Generate call.
// GenerateStream always errors so callLLM falls back to the non-streaming
// path, keeping these tests independent of the streaming demuxer.
type fakeModel struct {
	responses []agentcore.Message
	calls     int
}

func (m *fakeModel) Generate(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolSpec, opts ...agentcore.CallOption) (*agentcore.LLMResponse, error) {
	if m.calls >= len(m.responses) {
		return nil, errors.New("fakeModel: out of responses")
	}
	resp := m.responses[m.calls]
	m.calls++
	return &agentcore.LLMResponse{Message: resp}, nil
}

func (m *fakeModel) GenerateStream(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolSpec, opts ...agentcore.CallOption) (<-chan agentcore.StreamEvent, error) {
	return nil, errors.New("fakeModel: streaming not supported")
}

func (m *fakeModel) SupportsTools() bool { return true }

func textMessage(text string) agentcore.Message {
	return agentcore.Message{
		Role:       agentcore.RoleAssistant,
		Content:    []agentcore.ContentBlock{agentcore.TextBlock(text)},
		StopReason: agentcore.StopReasonStop,
	}
}

func toolUseMessage(id, name string, args string) agentcore.Message {
	return agentcore.Message{
		Role: agentcore.RoleAssistant,
		Content: []agentcore.ContentBlock{
			agentcore.ToolCallBlock(agentcore.ToolCall{ID: id, Name: name, Args: json.RawMessage(args)}),
		},
		StopReason: agentcore.StopReasonToolUse,
	}
}

type addTool struct{}

func (addTool) Name() string        { return "add" }
func (addTool) Description() string { return "adds two numbers" }
func (addTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (addTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in struct{ A, B int }
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]int{"result": in.A + in.B})
}

func TestReActSingleTurnText(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{textMessage("Paris")}}
	op := NewReAct(model, nil, "you are a geography assistant")

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "What is the capital of France?"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.Message != "Paris" {
		t.Fatalf("message = %q, want Paris", out.Message)
	}
	if out.Metadata.TurnsUsed != 1 {
		t.Fatalf("turns used = %d, want 1", out.Metadata.TurnsUsed)
	}
	if out.ExitReason.Kind != ExitComplete {
		t.Fatalf("exit reason = %v, want Complete", out.ExitReason)
	}
}

func TestReActToolLoop(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{
		toolUseMessage("call_1", "add", `{"A":3,"B":4}`),
		textMessage("3 + 4 = 7"),
	}}
	op := NewReAct(model, []agentcore.Tool{addTool{}}, "")

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "what is 3+4?"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.Metadata.TurnsUsed != 2 {
		t.Fatalf("turns used = %d, want 2", out.Metadata.TurnsUsed)
	}
	if len(out.Metadata.ToolsCalled) != 1 || out.Metadata.ToolsCalled[0].Name != "add" || !out.Metadata.ToolsCalled[0].Success {
		t.Fatalf("tools called = %+v", out.Metadata.ToolsCalled)
	}
	if out.Message != "3 + 4 = 7" {
		t.Fatalf("message = %q", out.Message)
	}
}

func TestReActMaxTurnsCap(t *testing.T) {
	responses := make([]agentcore.Message, 0, 5)
	for i := 0; i < 5; i++ {
		responses = append(responses, toolUseMessage("call", "add", `{"A":1,"B":1}`))
	}
	model := &fakeModel{responses: responses}
	op := NewReAct(model, []agentcore.Tool{addTool{}}, "", WithReActMaxTurns(2))

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "loop forever"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.ExitReason.Kind != ExitMaxTurns {
		t.Fatalf("exit reason = %v, want MaxTurns", out.ExitReason)
	}
	if len(out.Metadata.ToolsCalled) > 2 {
		t.Fatalf("tools called length = %d, want <= 2", len(out.Metadata.ToolsCalled))
	}
}

func TestReActPreInferenceHalt(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{textMessage("should not be reached")}}
	hooks := hook.NewRegistry()
	hooks.Add(haltHook{point: hook.PreInference, reason: "blocked by policy"})
	op := NewReAct(model, nil, "", WithHooks(hooks))

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "hello"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.ExitReason.Kind != ExitObserverHalt {
		t.Fatalf("exit reason = %v, want ObserverHalt", out.ExitReason)
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times, want 0", model.calls)
	}
}

func TestReActExitCheckHaltAfterTurn(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{
		toolUseMessage("call_1", "add", `{"A":1,"B":1}`),
		textMessage("unreachable"),
	}}
	hooks := hook.NewRegistry()
	hooks.Add(haltHook{point: hook.ExitCheck, reason: "budget watchdog"})
	op := NewReAct(model, []agentcore.Tool{addTool{}}, "", WithHooks(hooks))

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "go"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.ExitReason.Kind != ExitObserverHalt {
		t.Fatalf("exit reason = %v, want ObserverHalt", out.ExitReason)
	}
}

func TestReActWritesSessionHistoryEffect(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{textMessage("ack")}}
	store := state.NewMemoryStore()
	op := NewReAct(model, nil, "", WithStore(store))

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "remember this", Session: "sess-1"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	var found bool
	for _, eff := range out.Effects {
		if eff.Kind == EffectWriteMemory && eff.Key == historyKey {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a WriteMemory effect for session history, got %+v", out.Effects)
	}
}

type haltHook struct {
	point  hook.Point
	reason string
}

func (h haltHook) Points() []hook.Point { return []hook.Point{h.point} }
func (h haltHook) Name() string         { return "halt-hook" }
func (h haltHook) Handle(ctx context.Context, hctx *hook.Context) (hook.Action, error) {
	return hook.HaltAction(h.reason), nil
}

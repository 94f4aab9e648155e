package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/voocel/agentcore/operator"
	"github.com/voocel/agentcore/state"
)

// scriptedOperator returns a fixed OperatorOutput regardless of input,
// enough to drive the dispatch/effect pipeline deterministically.
type scriptedOperator struct {
	output operator.OperatorOutput
}

func (s scriptedOperator) Execute(ctx context.Context, input operator.OperatorInput) (operator.OperatorOutput, *operator.OperatorError) {
	return s.output, nil
}

func TestEffectRunnerPipeline(t *testing.T) {
	store := state.NewMemoryStore()
	orch := NewMapOrchestrator()

	root := scriptedOperator{output: operator.OperatorOutput{
		ExitReason: operator.ExitReason{Kind: operator.ExitComplete},
		Effects: []operator.Effect{
			operator.WriteMemory(state.Workflow("wf-1"), "k-pipeline", mustJSON(map[string]int{"v": 42})),
			operator.Delegate("child", operator.OperatorInput{Message: "do the child part"}),
			operator.Handoff("target", mustJSON(map[string]int{"ticket": 123})),
			operator.Signal("wf-1", operator.SignalPayload{SignalType: "pipeline.signal"}),
			operator.DeleteMemory(state.Workflow("wf-1"), "k-pipeline"),
		},
	}}
	child := scriptedOperator{output: operator.OperatorOutput{ExitReason: operator.ExitReason{Kind: operator.ExitComplete}, Message: "child done"}}
	target := scriptedOperator{output: operator.OperatorOutput{ExitReason: operator.ExitReason{Kind: operator.ExitComplete}, Message: "target done"}}

	orch.Register("root", root)
	orch.Register("child", child)
	orch.Register("target", target)

	runner := NewEffectRunner(orch, store)
	trace, signaled, err := runner.Run(context.Background(), "root", operator.OperatorInput{Message: "start"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}

	agents := map[string]bool{}
	for _, tr := range trace {
		agents[tr.Agent] = true
	}
	for _, want := range []string{"root", "child", "target"} {
		if !agents[want] {
			t.Fatalf("trace missing dispatch to %q: %+v", want, trace)
		}
	}

	if len(signaled) != 1 || signaled[0].SignalType != "pipeline.signal" {
		t.Fatalf("signaled = %+v, want one pipeline.signal", signaled)
	}
	if sigs := orch.Signals(); len(sigs) != 1 || sigs[0].Workflow != "wf-1" {
		t.Fatalf("orchestrator signals = %+v, want one recorded against wf-1", sigs)
	}

	_, found, err := store.Read(context.Background(), state.Workflow("wf-1"), "k-pipeline")
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if found {
		t.Fatalf("k-pipeline should have been deleted")
	}
}

// selfDelegatingOperator always delegates back to itself, forcing the
// safety bound to trip.
type selfDelegatingOperator struct {
	agent string
}

func (s selfDelegatingOperator) Execute(ctx context.Context, input operator.OperatorInput) (operator.OperatorOutput, *operator.OperatorError) {
	return operator.OperatorOutput{
		ExitReason: operator.ExitReason{Kind: operator.ExitComplete},
		Effects:    []operator.Effect{operator.Delegate(s.agent, operator.OperatorInput{Message: "again"})},
	}, nil
}

func TestEffectRunnerSafetyBound(t *testing.T) {
	orch := NewMapOrchestrator()
	orch.Register("loop", selfDelegatingOperator{agent: "loop"})

	runner := NewEffectRunner(orch, nil)
	runner.MaxFollowups = 8

	trace, _, err := runner.Run(context.Background(), "loop", operator.OperatorInput{Message: "go"})
	if !errors.Is(err, ErrSafety) {
		t.Fatalf("err = %v, want ErrSafety", err)
	}
	if len(trace) != runner.MaxFollowups+1 {
		t.Fatalf("dispatch count = %d, want %d", len(trace), runner.MaxFollowups+1)
	}
}

func TestMapOrchestratorDispatchUnknownAgent(t *testing.T) {
	orch := NewMapOrchestrator()
	_, err := orch.Dispatch(context.Background(), "missing", operator.OperatorInput{})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("err = %v, want ErrAgentNotFound", err)
	}
}

func TestMapOrchestratorDispatchMany(t *testing.T) {
	orch := NewMapOrchestrator()
	orch.Register("a", scriptedOperator{output: operator.OperatorOutput{Message: "a-out"}})
	orch.Register("b", scriptedOperator{output: operator.OperatorOutput{Message: "b-out"}})

	results := orch.DispatchMany(context.Background(), []DispatchTask{
		{Agent: "a", Input: operator.OperatorInput{Message: "1"}},
		{Agent: "b", Input: operator.OperatorInput{Message: "2"}},
	})
	if len(results) != 2 || results[0].Agent != "a" || results[1].Agent != "b" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Output.Message != "a-out" || results[1].Output.Message != "b-out" {
		t.Fatalf("results = %+v", results)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

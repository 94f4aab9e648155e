package hook

import (
	"context"
	"errors"
	"testing"
)

type fakeHook struct {
	name   string
	points []Point
	action Action
	err    error
	called *int
}

func (f *fakeHook) Points() []Point { return f.points }
func (f *fakeHook) Name() string    { return f.name }
func (f *fakeHook) Handle(ctx context.Context, hctx *Context) (Action, error) {
	if f.called != nil {
		*f.called++
	}
	return f.action, f.err
}

func TestDispatchEmptyRegistryContinues(t *testing.T) {
	r := NewRegistry()
	action := r.Dispatch(context.Background(), &Context{Point: PreInference})
	if action.Kind != Continue {
		t.Fatalf("expected Continue, got %v", action.Kind)
	}
}

func TestDispatchContinueHookRunsNext(t *testing.T) {
	var calls int
	r := NewRegistry()
	r.Add(&fakeHook{name: "a", points: []Point{PreInference}, action: ContinueAction(), called: &calls})
	r.Add(&fakeHook{name: "b", points: []Point{PreInference}, action: ContinueAction(), called: &calls})

	action := r.Dispatch(context.Background(), &Context{Point: PreInference})
	if action.Kind != Continue || calls != 2 {
		t.Fatalf("expected both hooks to run and Continue, got action=%v calls=%d", action.Kind, calls)
	}
}

func TestDispatchHaltShortCircuits(t *testing.T) {
	var calls int
	r := NewRegistry()
	r.Add(&fakeHook{name: "a", points: []Point{PreToolUse}, action: HaltAction("blocked"), called: &calls})
	r.Add(&fakeHook{name: "b", points: []Point{PreToolUse}, action: ContinueAction(), called: &calls})

	action := r.Dispatch(context.Background(), &Context{Point: PreToolUse})
	if action.Kind != Halt || action.Reason != "blocked" {
		t.Fatalf("expected Halt(blocked), got %+v", action)
	}
	if calls != 1 {
		t.Fatalf("expected second hook to be skipped, but it ran %d times", calls)
	}
}

func TestDispatchSkipsHooksForOtherPoints(t *testing.T) {
	var calls int
	r := NewRegistry()
	r.Add(&fakeHook{name: "a", points: []Point{PostToolUse}, action: HaltAction("irrelevant"), called: &calls})

	action := r.Dispatch(context.Background(), &Context{Point: PreInference})
	if action.Kind != Continue || calls != 0 {
		t.Fatalf("hook registered for a different point should not run, calls=%d action=%v", calls, action.Kind)
	}
}

func TestDispatchErrorTreatedAsContinue(t *testing.T) {
	var calls int
	r := NewRegistry()
	r.Add(&fakeHook{name: "a", points: []Point{ExitCheck}, action: HaltAction("should be ignored"), err: errors.New("boom"), called: &calls})
	r.Add(&fakeHook{name: "b", points: []Point{ExitCheck}, action: ContinueAction(), called: &calls})

	action := r.Dispatch(context.Background(), &Context{Point: ExitCheck})
	if action.Kind != Continue || calls != 2 {
		t.Fatalf("hook error should be swallowed as Continue, got action=%v calls=%d", action.Kind, calls)
	}
}

func TestDispatchModifyActionsShortCircuit(t *testing.T) {
	r := NewRegistry()
	r.Add(&fakeHook{name: "a", points: []Point{PreToolUse}, action: ModifyToolInputAction(map[string]any{"x": 1})})
	r.Add(&fakeHook{name: "b", points: []Point{PreToolUse}, action: SkipToolAction("already handled")})

	action := r.Dispatch(context.Background(), &Context{Point: PreToolUse})
	if action.Kind != ModifyToolInput {
		t.Fatalf("expected ModifyToolInput to short-circuit, got %v", action.Kind)
	}
}

package operator

import (
	"context"
	"testing"

	"github.com/voocel/agentcore"
)

func TestSingleShotExecute(t *testing.T) {
	model := &fakeModel{responses: []agentcore.Message{textMessage("it's a cat")}}
	op := NewSingleShot(model, "classify the image")

	out, opErr := op.Execute(context.Background(), OperatorInput{Message: "describe this"})
	if opErr != nil {
		t.Fatalf("unexpected error: %v", opErr)
	}
	if out.Message != "it's a cat" {
		t.Fatalf("message = %q", out.Message)
	}
	if out.Metadata.TurnsUsed != 1 {
		t.Fatalf("turns used = %d, want 1", out.Metadata.TurnsUsed)
	}
	if out.ExitReason.Kind != ExitComplete {
		t.Fatalf("exit reason = %v, want Complete", out.ExitReason)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times, want exactly 1", model.calls)
	}
}

func TestSingleShotModelError(t *testing.T) {
	model := &fakeModel{} // no queued responses: Generate errors immediately
	op := NewSingleShot(model, "")

	_, opErr := op.Execute(context.Background(), OperatorInput{Message: "hi"})
	if opErr == nil {
		t.Fatal("expected an error")
	}
	if opErr.Kind != OperatorErrorModel {
		t.Fatalf("error kind = %v, want Model", opErr.Kind)
	}
}

// Package hook implements the pre/post-inference and pre/post-tool-use
// interception pipeline operators run through. Grounded on
// _examples/original_source/neuron-hooks/src/lib.rs.
package hook

import (
	"context"
	"time"
)

// Point identifies where in an operator's execution a Hook may run.
type Point int

const (
	PreInference Point = iota
	PostInference
	PreToolUse
	PostToolUse
	ExitCheck
)

func (p Point) String() string {
	switch p {
	case PreInference:
		return "pre_inference"
	case PostInference:
		return "post_inference"
	case PreToolUse:
		return "pre_tool_use"
	case PostToolUse:
		return "post_tool_use"
	case ExitCheck:
		return "exit_check"
	default:
		return "unknown"
	}
}

// Context carries whatever the pipeline knows at a given Point. Fields
// unrelated to the current point are left at their zero value — a
// PreInference hook, for instance, has no ToolName to read.
type Context struct {
	Point Point

	ModelInput  any
	ModelOutput any

	ToolName   string
	ToolInput  any
	ToolOutput any

	TokensUsed     int
	Cost           float64
	TurnsCompleted int
	Elapsed        time.Duration

	Metadata map[string]any
}

// ActionKind discriminates the outcome of a Hook.Handle call.
type ActionKind int

const (
	Continue ActionKind = iota
	Halt
	SkipTool
	ModifyToolInput
	ModifyToolOutput
)

// Action is the tagged result a Hook returns. Only the field matching Kind
// is meaningful: Reason for Halt/SkipTool, Value for the Modify* actions.
type Action struct {
	Kind   ActionKind
	Reason string
	Value  any
}

func ContinueAction() Action              { return Action{Kind: Continue} }
func HaltAction(reason string) Action     { return Action{Kind: Halt, Reason: reason} }
func SkipToolAction(reason string) Action { return Action{Kind: SkipTool, Reason: reason} }
func ModifyToolInputAction(newInput any) Action {
	return Action{Kind: ModifyToolInput, Value: newInput}
}
func ModifyToolOutputAction(newOutput any) Action {
	return Action{Kind: ModifyToolOutput, Value: newOutput}
}

// Hook observes or intervenes at one or more Points.
type Hook interface {
	// Points lists which Points this hook wants dispatched to it.
	Points() []Point
	// Handle runs at a matching Point. An error is treated as Continue.
	Handle(ctx context.Context, hctx *Context) (Action, error)
	// Name identifies the hook in logs and diagnostics.
	Name() string
}

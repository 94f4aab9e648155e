// Package operator defines the Operator protocol — what one agent does per
// cycle — plus the Effect vocabulary operators use to declare side effects
// without executing them. Grounded on
// _examples/original_source/layer0/src/operator.rs. Effect lives in this
// same package rather than a separate one because Effect.Delegate embeds an
// OperatorInput; splitting them would require a bidirectional import.
package operator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/voocel/agentcore/state"
)

// TriggerType says what caused an operator invocation, informing context
// assembly: a scheduled trigger means reconstructing everything from
// state, while a user message carries conversation context naturally.
type TriggerType string

const (
	TriggerUser        TriggerType = "user"
	TriggerTask        TriggerType = "task"
	TriggerSignal      TriggerType = "signal"
	TriggerSchedule    TriggerType = "schedule"
	TriggerSystemEvent TriggerType = "system_event"
)

// OperatorInput is everything an operator needs to execute. It deliberately
// excludes conversation history — the operator reads that from a
// state.StateReader via Session during context assembly. OperatorInput
// carries only what's new about this invocation.
type OperatorInput struct {
	Message string
	Trigger TriggerType

	// Session, if set, is the state.Scope key the operator reads prior
	// conversation history and memory from. Empty means stateless.
	Session string

	// Config overrides this invocation's defaults. Nil means "use the
	// operator's own defaults."
	Config *OperatorConfig

	// Metadata passes through the operator unchanged: tracing IDs, routing
	// priority, or domain-specific context the protocol doesn't need to
	// understand.
	Metadata map[string]any
}

// OperatorConfig holds per-invocation overrides. Every field is a pointer
// or zero-valued-means-default so a caller can override exactly what it
// needs to.
type OperatorConfig struct {
	MaxTurns       int
	MaxCost        float64
	MaxDuration    time.Duration
	Model          string
	AllowedTools   []string
	SystemAddendum string
}

// ExitReason says why an operator invocation ended.
type ExitReasonKind int

const (
	ExitComplete ExitReasonKind = iota
	ExitMaxTurns
	ExitBudgetExhausted
	ExitCircuitBreaker
	ExitTimeout
	ExitObserverHalt
	ExitError
	ExitCustom
)

// ExitReason is the tagged result of an operator invocation. Reason
// carries the human-readable detail for ExitObserverHalt and ExitCustom.
type ExitReason struct {
	Kind   ExitReasonKind
	Reason string
}

func (e ExitReason) String() string {
	switch e.Kind {
	case ExitComplete:
		return "complete"
	case ExitMaxTurns:
		return "max_turns"
	case ExitBudgetExhausted:
		return "budget_exhausted"
	case ExitCircuitBreaker:
		return "circuit_breaker"
	case ExitTimeout:
		return "timeout"
	case ExitObserverHalt:
		return "observer_halt: " + e.Reason
	case ExitError:
		return "error"
	case ExitCustom:
		return "custom: " + e.Reason
	default:
		return "unknown"
	}
}

func ObserverHalt(reason string) ExitReason { return ExitReason{Kind: ExitObserverHalt, Reason: reason} }
func CustomExit(reason string) ExitReason   { return ExitReason{Kind: ExitCustom, Reason: reason} }

// ToolCallRecord records one tool invocation within an operator execution.
type ToolCallRecord struct {
	Name     string
	Duration time.Duration
	Success  bool
}

// OperatorMetadata is execution metadata every operator produces.
// Implementations that can't track a field (e.g. cost for a local model)
// leave it zero.
type OperatorMetadata struct {
	TokensIn     int
	TokensOut    int
	Cost         float64
	TurnsUsed    int
	ToolsCalled  []ToolCallRecord
	Duration     time.Duration
}

// OperatorOutput is what an operator invocation produces.
type OperatorOutput struct {
	Message    string
	ExitReason ExitReason
	Metadata   OperatorMetadata

	// Effects the operator wants executed. CRITICAL DESIGN RULE: the
	// operator declares effects but never executes them — the caller
	// (an Orchestrator's EffectRunner) decides when and how.
	Effects []Effect
}

// OperatorError is the error type an Operator returns.
type OperatorErrorKind int

const (
	OperatorErrorModel OperatorErrorKind = iota
	OperatorErrorRetryable
	OperatorErrorCancelled
	OperatorErrorOther
)

type OperatorError struct {
	Kind OperatorErrorKind
	Err  error
}

func (e *OperatorError) Error() string { return e.Err.Error() }
func (e *OperatorError) Unwrap() error { return e.Err }

func NewOperatorError(kind OperatorErrorKind, err error) *OperatorError {
	return &OperatorError{Kind: kind, Err: err}
}

// Operator is the one-method protocol every agent implementation must
// satisfy: atomic from the outside — send input, get output. Everything
// that happens inside (how many model calls, which context strategy) is
// the implementation's concern. The operator MAY read from a
// state.StateReader during context assembly; it MUST NOT write to
// external state directly — writes are declared as Effects in the output.
type Operator interface {
	Execute(ctx context.Context, input OperatorInput) (OperatorOutput, *OperatorError)
}

// EffectKind discriminates the Effect tagged union.
type EffectKind int

const (
	EffectWriteMemory EffectKind = iota
	EffectDeleteMemory
	EffectDelegate
	EffectHandoff
	EffectSignal
	EffectLog
	EffectCustom
)

// SignalPayload is the data carried by an EffectSignal.
type SignalPayload struct {
	SignalType string
	Data       json.RawMessage
}

// Effect is a side effect an operator declares instead of executing. Only
// the fields relevant to Kind are populated; see LocalEffectExecutor for
// the canonical per-kind handling.
type Effect struct {
	Kind EffectKind

	// WriteMemory / DeleteMemory
	Scope state.Scope
	Key   string
	Value json.RawMessage

	// Delegate
	Agent string
	Input OperatorInput

	// Handoff
	HandoffState json.RawMessage

	// Signal
	Target  string
	Payload SignalPayload

	// Log / Custom
	Level   string
	Message string
	Custom  map[string]any
}

func WriteMemory(scope state.Scope, key string, value json.RawMessage) Effect {
	return Effect{Kind: EffectWriteMemory, Scope: scope, Key: key, Value: value}
}

func DeleteMemory(scope state.Scope, key string) Effect {
	return Effect{Kind: EffectDeleteMemory, Scope: scope, Key: key}
}

func Delegate(agent string, input OperatorInput) Effect {
	return Effect{Kind: EffectDelegate, Agent: agent, Input: input}
}

func Handoff(agent string, handoffState json.RawMessage) Effect {
	return Effect{Kind: EffectHandoff, Agent: agent, HandoffState: handoffState}
}

func Signal(target string, payload SignalPayload) Effect {
	return Effect{Kind: EffectSignal, Target: target, Payload: payload}
}

func Log(level, message string) Effect {
	return Effect{Kind: EffectLog, Level: level, Message: message}
}

func Custom(message string, data map[string]any) Effect {
	return Effect{Kind: EffectCustom, Message: message, Custom: data}
}

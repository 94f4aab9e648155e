package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/voocel/agentcore/operator"
	"github.com/voocel/agentcore/state"
)

// DefaultMaxFollowups is the bound on effect-triggered follow-up dispatches
// within one Run call, matching
// _examples/original_source/neuron-orch-kit/src/runner.rs's default.
const DefaultMaxFollowups = 128

// ErrSafety is returned when a Run's follow-up dispatches exceed
// EffectRunner's MaxFollowups bound — the backstop against an operator that
// delegates to itself forever.
var ErrSafety = errors.New("orchestrator: exceeded max follow-ups")

// DispatchTrace is one completed dispatch within a Run call.
type DispatchTrace struct {
	Agent  string
	Output operator.OperatorOutput
}

// followupJob is a queued dispatch produced by executing a Delegate or
// Handoff effect.
type followupJob struct {
	agent string
	input operator.OperatorInput
}

// EffectRunner is the local effect interpreter: it dispatches an agent,
// executes every effect the agent declared, and enqueues any follow-up
// dispatches those effects produce, until the queue drains or MaxFollowups
// is exceeded. WriteMemory/DeleteMemory hit Store directly; Delegate and
// Handoff enqueue a new dispatch; Signal is both recorded by Orchestrator
// and returned in Run's signaled slice; Log and Custom are not interpreted
// locally.
//
// Grounded on _examples/original_source/neuron-orch-kit/src/runner.rs's
// dispatch/execute_effect/signal algorithm: Dispatched trace event →
// orchestrator.dispatch → execute each effect in order → push any enqueued
// follow-up onto an internal LIFO queue → bound total follow-ups.
type EffectRunner struct {
	Orchestrator Orchestrator
	Store        state.StateStore
	MaxFollowups int
}

func NewEffectRunner(orch Orchestrator, store state.StateStore) *EffectRunner {
	return &EffectRunner{Orchestrator: orch, Store: store, MaxFollowups: DefaultMaxFollowups}
}

// Run dispatches agent with input, interprets every effect it declares, and
// keeps dispatching follow-ups (LIFO: most recently enqueued first) until
// none remain. It returns the full dispatch trace in the order dispatches
// actually happened, plus every signal payload seen along the way.
func (r *EffectRunner) Run(ctx context.Context, agent string, input operator.OperatorInput) ([]DispatchTrace, []operator.SignalPayload, error) {
	maxFollowups := r.MaxFollowups
	if maxFollowups <= 0 {
		maxFollowups = DefaultMaxFollowups
	}

	queue := []followupJob{{agent: agent, input: input}}
	var trace []DispatchTrace
	var signaled []operator.SignalPayload
	followups := 0

	for len(queue) > 0 {
		job := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		out, err := r.Orchestrator.Dispatch(ctx, job.agent, job.input)
		if err != nil {
			return trace, signaled, err
		}
		trace = append(trace, DispatchTrace{Agent: job.agent, Output: out})

		for _, eff := range out.Effects {
			enqueued, payload, err := r.executeEffect(ctx, eff)
			if err != nil {
				return trace, signaled, err
			}
			if payload != nil {
				signaled = append(signaled, *payload)
			}
			if enqueued != nil {
				followups++
				if followups > maxFollowups {
					return trace, signaled, fmt.Errorf("%w: %d", ErrSafety, maxFollowups)
				}
				queue = append(queue, *enqueued)
			}
		}
	}

	return trace, signaled, nil
}

// executeEffect applies one declared effect, returning a follow-up dispatch
// to enqueue (Delegate/Handoff) and/or a signal payload to record (Signal).
func (r *EffectRunner) executeEffect(ctx context.Context, eff operator.Effect) (*followupJob, *operator.SignalPayload, error) {
	switch eff.Kind {
	case operator.EffectWriteMemory:
		if r.Store == nil {
			return nil, nil, nil
		}
		return nil, nil, r.Store.Write(ctx, eff.Scope, eff.Key, eff.Value)

	case operator.EffectDeleteMemory:
		if r.Store == nil {
			return nil, nil, nil
		}
		return nil, nil, r.Store.Delete(ctx, eff.Scope, eff.Key)

	case operator.EffectDelegate:
		return &followupJob{agent: eff.Agent, input: eff.Input}, nil, nil

	case operator.EffectHandoff:
		input := operator.OperatorInput{
			Message: string(eff.HandoffState),
			Trigger: operator.TriggerTask,
		}
		return &followupJob{agent: eff.Agent, input: input}, nil, nil

	case operator.EffectSignal:
		if err := r.Orchestrator.Signal(ctx, eff.Target, eff.Payload); err != nil {
			return nil, nil, err
		}
		payload := eff.Payload
		return nil, &payload, nil

	case operator.EffectLog, operator.EffectCustom:
		return nil, nil, nil

	default:
		return nil, nil, nil
	}
}

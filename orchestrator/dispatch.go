package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/voocel/agentcore/operator"
)

// ErrAgentNotFound is returned by Dispatch/DispatchMany when no operator is
// registered under the requested name.
var ErrAgentNotFound = errors.New("orchestrator: agent not found")

// DispatchTask is one unit of work for DispatchMany: run agent with input.
type DispatchTask struct {
	Agent string
	Input operator.OperatorInput
}

// DispatchResult is one DispatchMany outcome, in the same order as the
// submitted tasks.
type DispatchResult struct {
	Agent  string
	Output operator.OperatorOutput
	Err    error
}

// Orchestrator is the name→operator.Operator addressing surface: it knows
// which agent a name refers to but not what any agent does internally.
// Grounded on _examples/original_source/layer0/src/operator.rs's companion
// runtime, which resolves Delegate/Handoff effects through exactly this
// dispatch/signal/query contract.
type Orchestrator interface {
	// Dispatch runs one named agent to completion and returns its output.
	// Returns ErrAgentNotFound (wrapped) if name isn't registered.
	Dispatch(ctx context.Context, name string, input operator.OperatorInput) (operator.OperatorOutput, error)

	// DispatchMany runs every task concurrently and returns results in
	// task order, regardless of completion order.
	DispatchMany(ctx context.Context, tasks []DispatchTask) []DispatchResult

	// Signal delivers a payload to a running or suspended workflow. The
	// local, in-memory implementation only records the signal for later
	// inspection — there is no suspended workflow state to wake.
	Signal(ctx context.Context, workflow string, payload operator.SignalPayload) error

	// Query reads workflow-scoped state without dispatching an agent. The
	// local implementation has nothing to answer with and returns nil.
	Query(ctx context.Context, workflow string, payload operator.SignalPayload) (json.RawMessage, error)
}

// SignalRecord is one Signal call recorded by MapOrchestrator.
type SignalRecord struct {
	Workflow string
	Payload  operator.SignalPayload
}

// MapOrchestrator is the reference Orchestrator: a static name→Operator
// map, dispatched synchronously. It has no durable workflow state of its
// own — Signal/Query are local bookkeeping, sufficient for single-process
// use and for testing the Effect-running pipeline built on top of it.
type MapOrchestrator struct {
	mu        sync.RWMutex
	operators map[string]operator.Operator
	signals   []SignalRecord
}

func NewMapOrchestrator() *MapOrchestrator {
	return &MapOrchestrator{operators: make(map[string]operator.Operator)}
}

// Register binds a name to an operator.Operator. Calling Register with a
// name already in use replaces the prior binding.
func (m *MapOrchestrator) Register(name string, op operator.Operator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators[name] = op
}

func (m *MapOrchestrator) Dispatch(ctx context.Context, name string, input operator.OperatorInput) (operator.OperatorOutput, error) {
	m.mu.RLock()
	op, ok := m.operators[name]
	m.mu.RUnlock()
	if !ok {
		return operator.OperatorOutput{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	out, opErr := op.Execute(ctx, input)
	if opErr != nil {
		return operator.OperatorOutput{}, opErr
	}
	return out, nil
}

func (m *MapOrchestrator) DispatchMany(ctx context.Context, tasks []DispatchTask) []DispatchResult {
	results := make([]DispatchResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task DispatchTask) {
			defer wg.Done()
			out, err := m.Dispatch(ctx, task.Agent, task.Input)
			results[i] = DispatchResult{Agent: task.Agent, Output: out, Err: err}
		}(i, task)
	}
	wg.Wait()
	return results
}

func (m *MapOrchestrator) Signal(ctx context.Context, workflow string, payload operator.SignalPayload) error {
	m.mu.Lock()
	m.signals = append(m.signals, SignalRecord{Workflow: workflow, Payload: payload})
	m.mu.Unlock()
	return nil
}

func (m *MapOrchestrator) Query(ctx context.Context, workflow string, payload operator.SignalPayload) (json.RawMessage, error) {
	return nil, nil
}

// Signals returns every Signal call recorded so far, in call order.
func (m *MapOrchestrator) Signals() []SignalRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SignalRecord, len(m.signals))
	copy(out, m.signals)
	return out
}

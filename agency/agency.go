package agency

import (
	"context"
	"fmt"
	"sync"

	"github.com/voocel/agentcore/operator"
	"github.com/voocel/agentcore/orchestrator"
)

// registrar is satisfied by orchestrator implementations that support
// binding a name to an operator.Operator. orchestrator.Orchestrator itself
// deliberately omits Register — not every implementation (e.g. a remote
// workflow engine) can register locally.
type registrar interface {
	Register(name string, op operator.Operator)
}

// Agency is a named group of operator.Operator agents, the communication
// permissions between them (FlowChart), and the Orchestrator that dispatches
// to them by name.
type Agency struct {
	Name string

	Agents map[string]operator.Operator

	FlowChart *FlowChart

	Orchestrator orchestrator.Orchestrator

	Workflows map[string]*Workflow

	SharedState map[string]interface{}

	SharedInstructions string

	mu sync.RWMutex
}

// Config configures an Agency instance
type Config struct {
	Name               string
	SharedInstructions string

	// Orchestrator instance. Defaults to a fresh orchestrator.MapOrchestrator
	// when nil.
	Orchestrator orchestrator.Orchestrator

	DefaultModel string
	Temperature  float64
	MaxTokens    int
}

// New creates a new Agency
func New(config Config) *Agency {
	a := &Agency{
		Name:               config.Name,
		Agents:             make(map[string]operator.Operator),
		FlowChart:          NewFlowChart(),
		Workflows:          make(map[string]*Workflow),
		SharedState:        make(map[string]interface{}),
		SharedInstructions: config.SharedInstructions,
	}

	if config.Orchestrator != nil {
		a.Orchestrator = config.Orchestrator
	} else {
		a.Orchestrator = orchestrator.NewMapOrchestrator()
	}

	return a
}

// AddAgent registers an operator.Operator under name, both locally and with
// the underlying orchestrator (if it supports registration).
func (a *Agency) AddAgent(name string, op operator.Operator) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.Agents[name]; exists {
		return fmt.Errorf("agent with ID %s already exists", name)
	}

	r, ok := a.Orchestrator.(registrar)
	if !ok {
		return fmt.Errorf("orchestrator %T does not support agent registration", a.Orchestrator)
	}
	r.Register(name, op)
	a.Agents[name] = op

	return nil
}

// GetAgent gets an agent by name.
func (a *Agency) GetAgent(name string) (operator.Operator, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	op, exists := a.Agents[name]
	if !exists {
		return nil, fmt.Errorf("agent with ID %s not found", name)
	}

	return op, nil
}

// ListAgents lists the names of every registered agent.
func (a *Agency) ListAgents() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.Agents))
	for name := range a.Agents {
		names = append(names, name)
	}

	return names
}

// SetFlowChart sets the communication flow chart
func (a *Agency) SetFlowChart(flowChart *FlowChart) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.FlowChart = flowChart
}

// DefineFlowChart defines communication relationships through Flow
func (a *Agency) DefineFlowChart(flows []Flow) error {
	flowChart := NewFlowChart()

	for _, flow := range flows {
		switch len(flow) {
		case 1:
			flowChart.AddEntryPoint(flow[0])
		case 2:
			flowChart.AddConnection(flow[0], flow[1])
		default:
			return fmt.Errorf("invalid flow definition: each flow must contain 1 or 2 agents")
		}
	}

	a.SetFlowChart(flowChart)
	return nil
}

// Execute dispatches input to the agency's first entry point agent and
// returns its reply.
func (a *Agency) Execute(ctx context.Context, input string) (string, error) {
	if len(a.FlowChart.EntryPoints) == 0 {
		return "", fmt.Errorf("no entry point defined in the agency")
	}

	entryAgentID := a.FlowChart.EntryPoints[0]
	if _, err := a.GetAgent(entryAgentID); err != nil {
		return "", err
	}

	out, err := a.Orchestrator.Dispatch(ctx, entryAgentID, operator.OperatorInput{
		Message: input,
		Trigger: operator.TriggerUser,
	})
	if err != nil {
		return "", err
	}

	return out.Message, nil
}

// RegisterWorkflow registers a workflow by ID, making it runnable via
// RunWorkflow.
func (a *Agency) RegisterWorkflow(workflow *Workflow) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.Workflows[workflow.ID]; exists {
		return fmt.Errorf("workflow with ID %s already exists", workflow.ID)
	}
	a.Workflows[workflow.ID] = workflow
	return nil
}

// RunWorkflow executes a previously registered workflow by ID.
func (a *Agency) RunWorkflow(ctx context.Context, workflowID string, input interface{}) (interface{}, error) {
	a.mu.RLock()
	workflow, exists := a.Workflows[workflowID]
	a.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("workflow with ID %s not found", workflowID)
	}
	return workflow.Execute(ctx, a, input)
}

// Flow represents a communication connection relationship: 1 agent name
// declares an entry point, 2 names declare a sender→receiver connection.
type Flow []string

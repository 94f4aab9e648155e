package agent

import "github.com/voocel/agentcore/tools"

// Config defines a lightweight agent configuration.
type Config struct {
	ID           string
	Name         string
	SystemPrompt string
	Tools        []tools.Tool
	Metadata     map[string]interface{}
	Capabilities *AgentCapabilities
}

// Agent is a lightweight descriptor and does not execute tools or call models.
type Agent struct {
	config Config
}

// New creates an Agent with options.
func New(id, name string, opts ...Option) *Agent {
	cfg := Config{
		ID:   id,
		Name: name,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Agent{config: cfg}
}

// NewWithConfig creates an Agent from a config struct.
func NewWithConfig(cfg Config) *Agent {
	return &Agent{config: cfg}
}

func (a *Agent) ID() string {
	return a.config.ID
}

func (a *Agent) Name() string {
	return a.config.Name
}

func (a *Agent) SystemPrompt() string {
	return a.config.SystemPrompt
}

func (a *Agent) Tools() []tools.Tool {
	return append([]tools.Tool(nil), a.config.Tools...)
}

func (a *Agent) Metadata() map[string]interface{} {
	if a.config.Metadata == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(a.config.Metadata))
	for k, v := range a.config.Metadata {
		cp[k] = v
	}
	return cp
}

// GetCapabilities returns the agent's declared capability profile, or nil if
// none was set. A swarm selection strategy uses this to match agents to
// tasks without needing to execute them.
func (a *Agent) GetCapabilities() *AgentCapabilities {
	return a.config.Capabilities
}

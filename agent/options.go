package agent

import "github.com/voocel/agentcore/tools"

// Option configures a Config during New.
type Option func(*Config)

// WithSystemPrompt sets the agent's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) {
		c.SystemPrompt = prompt
	}
}

// WithTools sets the tools available to the agent.
func WithTools(toolList ...tools.Tool) Option {
	return func(c *Config) {
		c.Tools = toolList
	}
}

// WithMetadata attaches a metadata key/value pair to the agent.
func WithMetadata(key string, value interface{}) Option {
	return func(c *Config) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]interface{})
		}
		c.Metadata[key] = value
	}
}

// WithCapabilities declares the agent's capability profile for swarm selection strategies.
func WithCapabilities(capabilities *AgentCapabilities) Option {
	return func(c *Config) {
		c.Capabilities = capabilities
	}
}

package agent

// Capability names a declared skill area an agent advertises to a selection
// strategy (orchestrator.ExpertRoutingStrategy, orchestrator.CapabilityMatchingStrategy).
type Capability string

const (
	CapabilityToolUse     Capability = "tool_use"
	CapabilityMemory      Capability = "memory"
	CapabilityStreaming   Capability = "streaming"
	CapabilityMultimodal  Capability = "multimodal"
	CapabilityReasoning   Capability = "reasoning"
	CapabilityPlanning    Capability = "planning"
	CapabilityHandoff     Capability = "handoff"
	CapabilityAnalysis    Capability = "analysis"
	CapabilityWriting     Capability = "writing"
	CapabilityResearch    Capability = "research"
	CapabilityEngineering Capability = "engineering"
	CapabilityDesign      Capability = "design"
	CapabilityMarketing   Capability = "marketing"
	CapabilityFinance     Capability = "finance"
	CapabilityLegal       Capability = "legal"
	CapabilitySupport     Capability = "support"
	CapabilityManagement  Capability = "management"
	CapabilityEducation   Capability = "education"
)

// AgentCapabilities describes what an agent is good at, for use by a swarm
// selection strategy deciding which agent should handle a task.
type AgentCapabilities struct {
	CoreCapabilities []Capability
	Expertise        []string
	ComplexityLevel  int
	ToolTypes        []string
	CustomTags       []string
}

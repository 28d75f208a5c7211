package core

// AgentRole categorizes an agent's function within a system. Exactly one
// agent per system must carry RoleEntryCoordinator; it is the only agent the
// routing loop ever starts (or resumes) from.
type AgentRole string

const (
	// RoleEntryCoordinator owns routing decisions and is the sole entry
	// point for every turn.
	RoleEntryCoordinator AgentRole = "entry-coordinator"
	// RoleToolAgent performs a bounded task and reports completion.
	RoleToolAgent AgentRole = "tool-agent"
	// RoleDecisionAgent evaluates context and produces judgments.
	RoleDecisionAgent AgentRole = "decision-agent"
	// RoleInterfaceAgent interacts with the user through UI tools.
	RoleInterfaceAgent AgentRole = "interface-agent"
)

// AgentDefinition is the static description of a single agent. Definitions
// are immutable once a system is deployed; they are mutated only by explicit
// system-update operations outside the execution engine.
//
// The Allow* capability flags gate which optional fields the invoker admits
// into an agent's result schema. They are explicit rather than inferred from
// the role so a system author can, for example, grant store operations to an
// interface agent without changing its routing semantics.
type AgentDefinition struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Role         AgentRole `json:"role" yaml:"role"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Instructions string    `json:"instructions" yaml:"instructions"`
	Capabilities []string  `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	UITools      []string  `json:"ui_tools,omitempty" yaml:"ui_tools,omitempty"`

	AllowUITools    bool `json:"allow_ui_tools,omitempty" yaml:"allow_ui_tools,omitempty"`
	AllowStoreOps   bool `json:"allow_store_ops,omitempty" yaml:"allow_store_ops,omitempty"`
	AllowAgentCalls bool `json:"allow_agent_calls,omitempty" yaml:"allow_agent_calls,omitempty"`
}

// PermitsTool reports whether the agent may invoke the given UI tool id.
func (a *AgentDefinition) PermitsTool(toolID string) bool {
	for _, id := range a.UITools {
		if id == toolID {
			return true
		}
	}
	return false
}

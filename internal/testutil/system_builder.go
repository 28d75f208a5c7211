package testutil

import (
	"github.com/agentrelay/agentrelay/core"
)

// SystemBuilder provides a fluent helper for constructing system specs in
// tests. Example:
//
//	sys := NewSystemBuilder("support").
//		Coordinator("coordinator").
//		ToolAgent("faq").
//		Connect("coordinator", "faq").
//		Connect("faq", core.Terminal).
//		Build()
//
// Chain only the parts you need; agents can be customized with option
// functions.
type SystemBuilder struct {
	spec core.SystemSpec
}

// NewSystemBuilder creates a builder for a system with the given id.
func NewSystemBuilder(id string) *SystemBuilder {
	return &SystemBuilder{spec: core.SystemSpec{ID: id, Name: id}}
}

// Name sets the display name (chainable).
func (b *SystemBuilder) Name(name string) *SystemBuilder {
	b.spec.Name = name
	return b
}

// Coordinator appends an entry-coordinator agent (chainable).
func (b *SystemBuilder) Coordinator(id string, optFns ...func(a *core.AgentDefinition)) *SystemBuilder {
	return b.agent(id, core.RoleEntryCoordinator, optFns)
}

// ToolAgent appends a tool agent (chainable).
func (b *SystemBuilder) ToolAgent(id string, optFns ...func(a *core.AgentDefinition)) *SystemBuilder {
	return b.agent(id, core.RoleToolAgent, optFns)
}

// Agent appends a fully specified agent (chainable).
func (b *SystemBuilder) Agent(a core.AgentDefinition) *SystemBuilder {
	b.spec.Agents = append(b.spec.Agents, a)
	return b
}

func (b *SystemBuilder) agent(id string, role core.AgentRole, optFns []func(a *core.AgentDefinition)) *SystemBuilder {
	a := core.AgentDefinition{ID: id, Name: id, Role: role}
	for _, fn := range optFns {
		fn(&a)
	}
	b.spec.Agents = append(b.spec.Agents, a)
	return b
}

// Connect appends a sequential routing edge (chainable).
func (b *SystemBuilder) Connect(from, to string) *SystemBuilder {
	b.spec.Connections = append(b.spec.Connections, core.Connection{
		From: from, To: to, Kind: core.EdgeSequential,
	})
	return b
}

// UITools sets the system-level UI tool set (chainable).
func (b *SystemBuilder) UITools(ids ...string) *SystemBuilder {
	b.spec.UITools = ids
	return b
}

// Build returns the assembled spec.
func (b *SystemBuilder) Build() *core.SystemSpec {
	spec := b.spec
	return &spec
}

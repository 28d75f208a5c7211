package core

// Terminal is the routing marker an agent returns to end the conversation
// turn instead of handing off to another agent.
const Terminal = "end"

// EdgeKind categorizes a routing edge between two agents.
type EdgeKind string

const (
	// EdgeSequential hands control to the target unconditionally.
	EdgeSequential EdgeKind = "sequential"
	// EdgeConditional hands control when the attached condition holds.
	EdgeConditional EdgeKind = "conditional"
	// EdgeParallel marks fan-out edges (informational; the loop itself
	// executes one agent at a time).
	EdgeParallel EdgeKind = "parallel"
	// EdgeToolCall marks an edge traversed to satisfy a tool request.
	EdgeToolCall EdgeKind = "tool-call"
)

// Connection is a directed edge in a system's routing graph. From must name
// an existing agent; To names an existing agent or Terminal.
type Connection struct {
	From        string   `json:"from" yaml:"from"`
	To          string   `json:"to" yaml:"to"`
	Kind        EdgeKind `json:"kind" yaml:"kind"`
	Condition   string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

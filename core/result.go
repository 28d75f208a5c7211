package core

import "encoding/json"

// UIToolCall is an agent's request to render a generated UI widget.
type UIToolCall struct {
	ToolID              string          `json:"tool_id"`
	ToolName            string          `json:"tool_name"`
	Props               json.RawMessage `json:"props,omitempty"`
	RequiresInteraction bool            `json:"requires_interaction"`
}

// StoreOpKind names a side operation against the external persistence store.
type StoreOpKind string

const (
	// OpSaveMessage persists a single chat message.
	OpSaveMessage StoreOpKind = "save_message"
	// OpUpdateSnapshot merges a progress snapshot.
	OpUpdateSnapshot StoreOpKind = "update_snapshot"
	// OpCreateSession records a new session row.
	OpCreateSession StoreOpKind = "create_session"
	// OpGetSession reads one session row; the row comes back in the
	// operation's outcome record.
	OpGetSession StoreOpKind = "get_session"
	// OpGetSessions reads all session rows owned by the current system.
	OpGetSessions StoreOpKind = "get_sessions"
	// OpDeleteSession removes a session row.
	OpDeleteSession StoreOpKind = "delete_session"
)

// StoreOp is an agent-requested side operation. The runner deduplicates
// save_message operations against the session log before forwarding them.
type StoreOp struct {
	Kind    StoreOpKind     `json:"kind"`
	Role    Role            `json:"role,omitempty"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StoreOpOutcome records what happened when one requested StoreOp was
// forwarded to the persistence store. Failures surface here as data, never
// as an error from the run: Success is false and Error carries the cause.
// Read operations return their payload in Data.
type StoreOpOutcome struct {
	Kind    StoreOpKind     `json:"kind"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AgentCall is an agent's declared request to consult another agent. The
// engine records these as data; it does not dispatch them synchronously.
type AgentCall struct {
	AgentID string `json:"agent_id"`
	Request string `json:"request"`
}

// ExecutionResult is the outcome of one agent invocation (or a full routing
// run, in which case Messages accumulates across all invocations).
type ExecutionResult struct {
	Messages    []Message    `json:"messages"`
	AgentID     string       `json:"agent_id"`
	Routing     *string      `json:"routing_decision,omitempty"`
	Completed   bool         `json:"completed"`
	UIToolCalls []UIToolCall `json:"ui_tool_calls,omitempty"`
	StoreOps    []StoreOp    `json:"store_operations,omitempty"`
	// StoreOpResults pairs with StoreOps in request order once the runner
	// has forwarded them.
	StoreOpResults []StoreOpOutcome `json:"store_op_results,omitempty"`
	AgentCalls     []AgentCall      `json:"agent_calls,omitempty"`
	AwaitingUI     bool             `json:"awaiting_ui_interaction"`
}

// RoutesTo reports whether the result routes to the given target.
func (r *ExecutionResult) RoutesTo(target string) bool {
	return r.Routing != nil && *r.Routing == target
}

// Terminal reports whether the result ends the turn: completion, an explicit
// terminal routing marker, or no routing decision at all.
func (r *ExecutionResult) Terminal() bool {
	return r.Completed || r.Routing == nil || *r.Routing == Terminal
}

package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the conversational author of a message.
type Role string

const (
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by an agent.
	RoleAssistant Role = "assistant"
	// RoleSystem marks synthesized context messages (e.g. UI interaction
	// summaries injected on resume).
	RoleSystem Role = "system"
)

// PersistState tracks whether a message has been forwarded to the external
// persistence store. It replaces the free-form "savedToDb" metadata flag with
// an explicit two-state enum so deduplication decisions are type checked.
type PersistState int

const (
	// Unpersisted messages have not yet been written to the external store.
	Unpersisted PersistState = iota
	// Persisted messages have been durably written; writing them again
	// would produce a duplicate row.
	Persisted
)

// String returns the string representation of the persist state.
func (p PersistState) String() string {
	if p == Persisted {
		return "persisted"
	}
	return "unpersisted"
}

// Message is a single conversational record. Once appended to a session log a
// message is never removed or reordered; insertion order is significant.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	AgentID   string            `json:"agent_id,omitempty"`
	Persist   PersistState      `json:"persist_state"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Persist:   Unpersisted,
	}
}

// NewUserMessage is a convenience wrapper for a user-authored message.
func NewUserMessage(content string) Message { return NewMessage(RoleUser, content) }

// NewAgentMessage creates an assistant message attributed to an agent.
func NewAgentMessage(agentID, content string) Message {
	m := NewMessage(RoleAssistant, content)
	m.AgentID = agentID
	return m
}

// NewSystemMessage creates a system-role context message.
func NewSystemMessage(content string) Message { return NewMessage(RoleSystem, content) }

// NewID generates a new unique identifier for messages and events.
func NewID() string { return uuid.NewString() }

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentrelay/agentrelay/core"
)

// ErrSessionNotFound is returned when a session row does not exist.
var ErrSessionNotFound = fmt.Errorf("session not found")

// SessionRecord is one persisted session row.
type SessionRecord struct {
	ID        string          `json:"id"`
	SystemID  string          `json:"system_id"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MessageRecord is one persisted chat message row.
type MessageRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      core.Role `json:"role"`
	Content   string    `json:"content"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence collaborator boundary. Implementations must be
// safe for concurrent use.
type Store interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	SaveMessage(ctx context.Context, rec MessageRecord) error
	// UpdateSnapshot deep-merges the incoming snapshot into the stored one;
	// the "progress.answered" count never rolls backward.
	UpdateSnapshot(ctx context.Context, sessionID string, snapshot json.RawMessage) error
	GetSession(ctx context.Context, sessionID string) (SessionRecord, error)
	GetSessions(ctx context.Context, systemID string) ([]SessionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

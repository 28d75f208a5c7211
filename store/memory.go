package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is a volatile Store for tests and ephemeral servers. Safe for
// concurrent use.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	messages map[string][]MessageRecord
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]SessionRecord),
		messages: make(map[string][]MessageRecord),
	}
}

// CreateSession implements Store. Creating an existing session is idempotent.
func (m *Memory) CreateSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[rec.ID]; ok {
		return nil
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.sessions[rec.ID] = rec
	return nil
}

// SaveMessage implements Store.
func (m *Memory) SaveMessage(_ context.Context, rec MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.messages[rec.SessionID] = append(m.messages[rec.SessionID], rec)
	return nil
}

// UpdateSnapshot implements Store.
func (m *Memory) UpdateSnapshot(_ context.Context, sessionID string, snapshot json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	rec.Snapshot = MergeSnapshots(rec.Snapshot, snapshot)
	rec.UpdatedAt = time.Now().UTC()
	m.sessions[sessionID] = rec
	return nil
}

// GetSession implements Store.
func (m *Memory) GetSession(_ context.Context, sessionID string) (SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rec, nil
}

// GetSessions implements Store. An empty systemID returns every session.
func (m *Memory) GetSessions(_ context.Context, systemID string) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionRecord, 0, len(m.sessions))
	for _, rec := range m.sessions {
		if systemID == "" || rec.SystemID == systemID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteSession implements Store; deleting an unknown id is not an error.
func (m *Memory) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.messages, sessionID)
	return nil
}

// Messages returns the persisted messages for a session, in insertion order.
// Test helper, not part of the Store interface.
func (m *Memory) Messages(sessionID string) []MessageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageRecord, len(m.messages[sessionID]))
	copy(out, m.messages[sessionID])
	return out
}

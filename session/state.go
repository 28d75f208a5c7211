package session

import (
	"sync"
	"time"

	"github.com/agentrelay/agentrelay/core"
)

// State is the conversational container for one session id. It holds the
// full ordered message log, the UI tools visible to the session and the
// interaction history. It is safe for concurrent access.
//
// Contract:
//   - Messages are append-only: never removed, never reordered
//   - Messages() returns a defensive copy
//   - SystemID is an exact structural reference to the owning system,
//     assigned on creation
type State struct {
	ID       string
	SystemID string

	mu           sync.Mutex
	messages     []core.Message
	uiTools      []string
	uiEvents     []core.UIEvent
	interactions []core.InteractionRecord
	pending      map[string]any
	lastEvent    time.Time
	updated      time.Time
}

// NewState creates an empty session state owned by the given system.
func NewState(id, systemID string) *State {
	now := time.Now().UTC()
	return &State{
		ID:       id,
		SystemID: systemID,
		pending:  make(map[string]any),
		updated:  now,
	}
}

// Append adds messages to the end of the log, preserving order.
func (s *State) Append(msgs ...core.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	s.updated = time.Now().UTC()
}

// Messages returns a copy of the full message log.
func (s *State) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current message count.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// HasPersisted reports whether a message with the exact same role and
// content is already marked Persisted. The runner uses this to suppress
// duplicate save_message operations when a turn is retried.
func (s *State) HasPersisted(role core.Role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.Role == role && m.Content == content && m.Persist == core.Persisted {
			return true
		}
	}
	return false
}

// MarkPersisted flags the first unpersisted message matching role+content as
// durably written.
func (s *State) MarkPersisted(role core.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.Role == role && m.Content == content && m.Persist == core.Unpersisted {
			m.Persist = core.Persisted
			return
		}
	}
}

// SetUITools replaces the set of UI tools visible to this session.
func (s *State) SetUITools(tools []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uiTools = append([]string(nil), tools...)
}

// UITools returns the UI tools visible to this session.
func (s *State) UITools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uiTools...)
}

// RecordInteraction appends a raw UI event and its derived history record.
// The history timestamp is server-assigned.
func (s *State) RecordInteraction(ev core.UIEvent, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uiEvents = append(s.uiEvents, ev)
	s.interactions = append(s.interactions, core.InteractionRecord{
		ToolID:    ev.ToolID,
		AgentID:   ev.AgentID,
		Event:     ev.Type,
		Timestamp: now,
	})
	s.lastEvent = now
	s.updated = now
}

// Interactions returns a copy of the derived interaction history.
func (s *State) Interactions() []core.InteractionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.InteractionRecord, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// UIEvents returns a copy of the raw interaction events received so far.
func (s *State) UIEvents() []core.UIEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.UIEvent, len(s.uiEvents))
	copy(out, s.uiEvents)
	return out
}

// RecentEvents returns the raw events whose server-recorded timestamp is at
// or after the cutoff, oldest first. Events and history records are appended
// in lockstep, so indices line up.
func (s *State) RecentEvents(cutoff time.Time) []core.UIEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.UIEvent
	for i := range s.uiEvents {
		if !s.interactions[i].Timestamp.Before(cutoff) {
			out = append(out, s.uiEvents[i])
		}
	}
	return out
}

// LastInteraction returns the server timestamp of the most recent UI event,
// zero if none was ever recorded.
func (s *State) LastInteraction() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}

// SetPending stores arbitrary held data under a pending-response key.
func (s *State) SetPending(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = value
}

// TakePending removes and returns held data for a pending-response key.
func (s *State) TakePending(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return v, ok
}

package testutil

import (
	"encoding/json"
	"time"

	"github.com/agentrelay/agentrelay/core"
)

// UIEventBuilder provides a fluent helper for constructing interaction
// events in tests. Example:
//
//	ev := NewUIEventBuilder("sess-1", "contact-form").
//		Type(core.EventFormSubmit).
//		JSON(`{"name":"Ada"}`).
//		Build()
type UIEventBuilder struct {
	event core.UIEvent
}

// NewUIEventBuilder creates a builder with event type click.
func NewUIEventBuilder(sessionID, toolID string) *UIEventBuilder {
	return &UIEventBuilder{event: core.UIEvent{
		SessionID: sessionID,
		ToolID:    toolID,
		Type:      core.EventClick,
	}}
}

// Type sets the event type (chainable).
func (b *UIEventBuilder) Type(t core.EventType) *UIEventBuilder {
	b.event.Type = t
	return b
}

// Agent attributes the event to an agent (chainable).
func (b *UIEventBuilder) Agent(agentID string) *UIEventBuilder {
	b.event.AgentID = agentID
	return b
}

// JSON sets the raw interaction payload (chainable).
func (b *UIEventBuilder) JSON(raw string) *UIEventBuilder {
	b.event.RawData = json.RawMessage(raw)
	return b
}

// At sets the client timestamp (chainable).
func (b *UIEventBuilder) At(ts time.Time) *UIEventBuilder {
	b.event.Timestamp = ts
	return b
}

// Build returns the assembled event.
func (b *UIEventBuilder) Build() core.UIEvent {
	return b.event
}

package core

import (
	"encoding/json"
	"time"
)

// EventType categorizes a UI interaction event.
type EventType string

const (
	// EventClick is a button or element click.
	EventClick EventType = "click"
	// EventInput is a free-text input change.
	EventInput EventType = "input"
	// EventSelect is a choice from a fixed option set.
	EventSelect EventType = "select"
	// EventSubmit is a generic submit action.
	EventSubmit EventType = "submit"
	// EventFormSubmit is a structured form submission.
	EventFormSubmit EventType = "form_submit"
	// EventVoice is a transcribed voice interaction.
	EventVoice EventType = "voice"
	// EventCustom is an agent-declared arbitrary interaction.
	EventCustom EventType = "custom"
)

// Payload is the typed union of interaction data shapes. Concrete payload
// types implement the unexported isPayload marker enabling a closed set;
// RawPayload preserves opaque pass-through semantics for agent-declared
// arbitrary data.
type Payload interface{ isPayload() }

// FormPayload carries structured form fields (submit, form_submit).
type FormPayload struct {
	Fields map[string]string `json:"fields"`
}

func (FormPayload) isPayload() {}

// ValuePayload carries a single value (input, select, click target, voice
// transcript).
type ValuePayload struct {
	Value string `json:"value"`
}

func (ValuePayload) isPayload() {}

// RawPayload carries unmodeled JSON for custom interactions.
type RawPayload struct {
	Data json.RawMessage `json:"data"`
}

func (RawPayload) isPayload() {}

// DecodePayload maps raw interaction data to the typed union: form-shaped
// events decode to FormPayload, value-shaped events to ValuePayload, and
// everything that does not fit falls back to RawPayload unchanged.
func DecodePayload(eventType EventType, raw json.RawMessage) Payload {
	if len(raw) == 0 {
		return RawPayload{}
	}
	switch eventType {
	case EventSubmit, EventFormSubmit:
		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err == nil {
			return FormPayload{Fields: fields}
		}
	case EventInput, EventSelect, EventClick, EventVoice:
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			return ValuePayload{Value: v}
		}
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != "" {
			return ValuePayload{Value: obj.Value}
		}
	}
	return RawPayload{Data: raw}
}

// EncodePayload renders a payload back to JSON for prompts and logs.
func EncodePayload(p Payload) json.RawMessage {
	switch v := p.(type) {
	case FormPayload:
		b, _ := json.Marshal(v.Fields)
		return b
	case ValuePayload:
		b, _ := json.Marshal(v.Value)
		return b
	case RawPayload:
		return v.Data
	default:
		return nil
	}
}

// UIEvent is a transient inbound interaction from a rendered UI tool. Events
// are recorded into session state but not separately persisted by the engine.
type UIEvent struct {
	ToolID    string          `json:"tool_id"`
	Type      EventType       `json:"event_type"`
	Data      Payload         `json:"-"`
	RawData   json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id"`
	AgentID   string          `json:"agent_id,omitempty"`
}

// Decode populates the typed Data union from RawData.
func (e *UIEvent) Decode() {
	if e.Data == nil {
		e.Data = DecodePayload(e.Type, e.RawData)
	}
}

// InteractionRecord is the derived history entry kept per session.
type InteractionRecord struct {
	ToolID    string    `json:"tool_id"`
	AgentID   string    `json:"agent_id,omitempty"`
	Event     EventType `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

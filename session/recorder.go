package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/logging"
)

// Handler is a per-session callback invoked synchronously for every recorded
// interaction event.
type Handler func(core.UIEvent)

// Recorder appends inbound UI interaction events to the owning session and
// notifies the registered per-session callback. Whether a recorded event
// resumes a suspended conversation is the continuation component's decision,
// not the recorder's.
type Recorder struct {
	store  *Store
	logger logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRecorder constructs a Recorder over the given session store.
func NewRecorder(store *Store, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Recorder{
		store:    store,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Handle records the event against its session. It fails only when the
// session does not exist; callback errors cannot occur because handlers do
// not return one.
func (r *Recorder) Handle(ev core.UIEvent) error {
	st, ok := r.store.Get(ev.SessionID)
	if !ok {
		return fmt.Errorf("session %q not found", ev.SessionID)
	}

	ev.Decode()
	st.RecordInteraction(ev, time.Now().UTC())
	r.logger.Debug("interaction recorded session_id=%s tool_id=%s event=%s", ev.SessionID, ev.ToolID, ev.Type)

	r.mu.RLock()
	handler := r.handlers[ev.SessionID]
	r.mu.RUnlock()
	if handler != nil {
		handler(ev)
	}
	return nil
}

// RegisterHandler installs the callback for a session id. Registration is
// last-writer-wins: only one live callback exists per session.
func (r *Recorder) RegisterHandler(sessionID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		delete(r.handlers, sessionID)
		return
	}
	r.handlers[sessionID] = h
}

package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/logging"
)

const (
	defaultMaxSessions = 1024
	defaultSessionTTL  = 24 * time.Hour
)

// Options configures a Store.
type Options struct {
	// MaxSessions bounds the number of live sessions; the least recently
	// used session is evicted when the bound is exceeded.
	MaxSessions int
	// TTL expires sessions idle longer than this duration.
	TTL time.Duration
	// Logger receives eviction notices.
	Logger logging.Logger
}

// Store maps session ids to State behind a bounded, TTL-expiring LRU cache.
// Eviction is the documented resource-lifecycle policy: an evicted session
// loses its in-memory log; durable history lives in the persistence store.
type Store struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *State]
	logger logging.Logger
}

// NewStore constructs a Store with optional overrides.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		MaxSessions: defaultMaxSessions,
		TTL:         defaultSessionTTL,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{logger: opts.Logger}
	s.cache = expirable.NewLRU[string, *State](opts.MaxSessions, func(id string, _ *State) {
		s.logger.Debug("session evicted session_id=%s", id)
	}, opts.TTL)
	return s
}

// GetOrCreate returns the existing State for the session id or creates one
// owned by the given system. An existing session keeps its original owner.
func (s *Store) GetOrCreate(sessionID, systemID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.cache.Get(sessionID); ok {
		return st
	}
	st := NewState(sessionID, systemID)
	s.cache.Add(sessionID, st)
	return st
}

// Get returns the State for the session id if it exists.
func (s *Store) Get(sessionID string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(sessionID)
}

// AppendMessages appends messages to the session, creating it when absent.
// Incoming messages are tagged Unpersisted.
func (s *Store) AppendMessages(sessionID, systemID string, msgs []core.Message) *State {
	st := s.GetOrCreate(sessionID, systemID)
	for i := range msgs {
		msgs[i].Persist = core.Unpersisted
	}
	st.Append(msgs...)
	return st
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Package session implements the in-memory conversation state kept per
// session id: the append-only message log, the UI interaction history and
// the recorder that routes inbound interaction events to registered
// callbacks.
//
// State lives in process memory behind a bounded, TTL-expiring LRU cache so
// long-running servers do not accumulate abandoned sessions without bound.
// All mutation of a single session is serialized through the session's own
// mutex; distinct sessions never contend.
package session

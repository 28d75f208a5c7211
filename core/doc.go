// Package core provides the foundational domain types used by agentrelay. It
// defines the data model for:
//
//   - Agent definitions and the routing graph connecting them
//   - System specifications (a deployable set of agents + connections)
//   - Messages (immutable, append-only conversational records)
//   - UI interaction events and their typed payloads
//   - Execution results produced by a single agent invocation
//
// The package intentionally keeps implementation concerns (session storage,
// the routing loop, LLM adapters, persistence backends) out of scope so that
// higher layers depend only on small, stable value types.
package core

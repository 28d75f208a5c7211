// Package logging provides a tiny abstraction over slog so engine code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. A richer RelayLogger adds contextual helpers (system,
// session, component) and domain specific helpers for model calls and
// routing hops.
package logging

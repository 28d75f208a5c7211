// Package runner drives the multi-turn agent execution loop: it loads
// system specifications, executes the bounded routing loop across agents for
// each inbound chat turn, suspends turns that wait on UI interaction, and
// resumes suspended sessions when an interaction event arrives.
//
// A Runner is constructed explicitly by the composition root and injected
// into request handlers; there is no package-level instance. Public methods
// are safe for concurrent use; mutation of a single session is serialized by
// the session state itself.
package runner

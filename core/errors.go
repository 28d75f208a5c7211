package core

import (
	"errors"
	"fmt"
)

// Configuration errors are the one error class callers of the runner must be
// prepared to handle; everything else degrades to a best-effort result.
var (
	// ErrSystemNotLoaded is returned when Run is invoked for a system id
	// that was never registered via LoadSystem.
	ErrSystemNotLoaded = errors.New("agent system not loaded")

	// ErrNoCoordinator is returned when a system does not contain exactly
	// one entry-coordinator agent.
	ErrNoCoordinator = errors.New("agent system must have exactly one entry-coordinator")
)

// ConfigError wraps a configuration sentinel with the offending system id.
type ConfigError struct {
	SystemID string
	Err      error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("system %q: %s", e.SystemID, e.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is checks.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError for the given system.
func NewConfigError(systemID string, err error) *ConfigError {
	return &ConfigError{SystemID: systemID, Err: err}
}

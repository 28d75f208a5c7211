package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Request captures one structured-generation call: behavioral instructions,
// the rendered conversation prompt, and the JSON schema the output must
// satisfy. SchemaName labels the forced tool/function for providers that
// implement constrained output via tool calling.
type Request struct {
	Instructions string         `json:"instructions"`
	Prompt       string         `json:"prompt"`
	SchemaName   string         `json:"schema_name"`
	Schema       map[string]any `json:"schema"`
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Generator is the minimal interface the invoker requires from a model
// provider. GenerateStructured must return the raw JSON object produced by
// the model or an error; it must not attempt its own repair or validation.
type Generator interface {
	GenerateStructured(ctx context.Context, req Request) (json.RawMessage, error)

	// Info returns information about the generator implementation.
	Info() Info
}

// MockGenerator is a scriptable in-memory Generator for tests and examples.
// Responses are consumed FIFO; an enqueued error is returned in its scripted
// position. When the script is exhausted the optional Fallback function is
// consulted, otherwise an error is returned.
type MockGenerator struct {
	mu       sync.Mutex
	script   []scriptEntry
	requests []Request
	Fallback func(Request) (json.RawMessage, error)
}

type scriptEntry struct {
	raw json.RawMessage
	err error
}

// NewMockGenerator constructs an empty mock.
func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

// Enqueue registers the next canned JSON response.
func (m *MockGenerator) Enqueue(raw string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{raw: json.RawMessage(raw)})
	return m
}

// EnqueueError registers a scripted failure.
func (m *MockGenerator) EnqueueError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{err: err})
	return m
}

// GenerateStructured implements Generator.
func (m *MockGenerator) GenerateStructured(_ context.Context, req Request) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) > 0 {
		entry := m.script[0]
		m.script = m.script[1:]
		return entry.raw, entry.err
	}
	if m.Fallback != nil {
		return m.Fallback(req)
	}
	return nil, fmt.Errorf("mock generator: script exhausted after %d calls", len(m.requests))
}

// Requests returns a copy of every request seen so far, in order.
func (m *MockGenerator) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of GenerateStructured invocations so far.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return Info{Name: "mock", Provider: "mock"} }

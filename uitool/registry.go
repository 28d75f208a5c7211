package uitool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentrelay/agentrelay/core"
)

// ErrNotFound is returned when a tool id does not exist in the registry.
var ErrNotFound = fmt.Errorf("ui tool not found")

// Tool describes a registered UI widget.
type Tool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Registry resolves tool ids to tool descriptions.
type Registry interface {
	Resolve(id string) (Tool, error)
	List() ([]Tool, error)
	Delete(id string) error
}

// Writer is implemented by registries that accept new tools alongside their
// opaque component source.
type Writer interface {
	Put(t Tool, source []byte) error
}

// Memory is a volatile Registry backed by a process-local map. Safe for
// concurrent access; best suited for tests and ephemeral demo servers.
type Memory struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	sources map[string][]byte
}

// NewMemory constructs an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{tools: make(map[string]Tool), sources: make(map[string][]byte)}
}

// Register adds or replaces a tool.
func (m *Memory) Register(t Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[t.ID] = t
}

// Put implements Writer, storing the tool and its component source.
func (m *Memory) Put(t Tool, source []byte) error {
	if t.ID == "" {
		return fmt.Errorf("invalid tool id %q", t.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[t.ID] = t
	m.sources[t.ID] = append([]byte(nil), source...)
	return nil
}

// Source returns the stored component source for a tool id.
func (m *Memory) Source(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return append([]byte(nil), src...), nil
}

// Resolve returns the tool with the given id.
func (m *Memory) Resolve(id string) (Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tools[id]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns all registered tools ordered by id.
func (m *Memory) List() ([]Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a tool; deleting an unknown id is not an error.
func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tools, id)
	delete(m.sources, id)
	return nil
}

// FilterForAgent resolves the agent's permitted tool ids against the
// registry, silently skipping ids the registry no longer knows.
func FilterForAgent(reg Registry, agent *core.AgentDefinition) []Tool {
	if reg == nil || !agent.AllowUITools {
		return nil
	}
	var out []Tool
	for _, id := range agent.UITools {
		t, err := reg.Resolve(id)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

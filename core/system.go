package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SystemStatus tracks the deployment lifecycle of a system specification.
type SystemStatus string

const (
	// StatusPending marks a freshly designed, not yet deployed system.
	StatusPending SystemStatus = "pending"
	// StatusDeploying marks a system whose deployment is in progress.
	StatusDeploying SystemStatus = "deploying"
	// StatusActive marks a deployed system accepting chat turns.
	StatusActive SystemStatus = "active"
	// StatusError marks a system whose deployment failed.
	StatusError SystemStatus = "error"
)

// SystemMetadata carries lifecycle timestamps for a system.
type SystemMetadata struct {
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	DeployedAt   *time.Time `json:"deployed_at,omitempty" yaml:"deployed_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty" yaml:"last_active_at,omitempty"`
}

// SystemSpec is the static description of a deployable multi-agent system:
// its agents, the routing graph connecting them, and the UI tools it exposes.
// The execution engine holds an in-memory copy once loaded; persistence of
// the specification itself happens outside the engine.
type SystemSpec struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Agents         []AgentDefinition `json:"agents" yaml:"agents"`
	Connections    []Connection      `json:"connections" yaml:"connections"`
	UITools        []string          `json:"ui_tools,omitempty" yaml:"ui_tools,omitempty"`
	PendingUITools []string          `json:"pending_ui_tools,omitempty" yaml:"pending_ui_tools,omitempty"`
	Status         SystemStatus      `json:"status" yaml:"status"`
	Metadata       SystemMetadata    `json:"metadata" yaml:"metadata"`
}

// Agent returns the agent definition with the given id, or nil.
func (s *SystemSpec) Agent(id string) *AgentDefinition {
	for i := range s.Agents {
		if s.Agents[i].ID == id {
			return &s.Agents[i]
		}
	}
	return nil
}

// Coordinator returns the single entry-coordinator agent. It fails with a
// ConfigError wrapping ErrNoCoordinator when zero or more than one agent
// carries RoleEntryCoordinator.
func (s *SystemSpec) Coordinator() (*AgentDefinition, error) {
	var found *AgentDefinition
	for i := range s.Agents {
		if s.Agents[i].Role != RoleEntryCoordinator {
			continue
		}
		if found != nil {
			return nil, NewConfigError(s.ID, ErrNoCoordinator)
		}
		found = &s.Agents[i]
	}
	if found == nil {
		return nil, NewConfigError(s.ID, ErrNoCoordinator)
	}
	return found, nil
}

// RoutingTargets returns the legal routing destinations for the given agent,
// derived from the connection graph. Terminal is always a legal destination
// so every agent can end a turn.
func (s *SystemSpec) RoutingTargets(fromID string) []string {
	targets := []string{}
	seen := map[string]bool{}
	for _, c := range s.Connections {
		if c.From != fromID || seen[c.To] {
			continue
		}
		seen[c.To] = true
		targets = append(targets, c.To)
	}
	if !seen[Terminal] {
		targets = append(targets, Terminal)
	}
	return targets
}

// Validate checks referential integrity of the routing graph: every edge
// endpoint must name an existing agent (or Terminal for the target) and
// agent ids must be unique.
func (s *SystemSpec) Validate() error {
	ids := map[string]bool{}
	for _, a := range s.Agents {
		if a.ID == "" {
			return fmt.Errorf("system %q: agent with empty id", s.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("system %q: duplicate agent id %q", s.ID, a.ID)
		}
		ids[a.ID] = true
	}
	for _, c := range s.Connections {
		if !ids[c.From] {
			return fmt.Errorf("system %q: connection from unknown agent %q", s.ID, c.From)
		}
		if c.To != Terminal && !ids[c.To] {
			return fmt.Errorf("system %q: connection to unknown agent %q", s.ID, c.To)
		}
	}
	if _, err := s.Coordinator(); err != nil {
		return err
	}
	return nil
}

// LoadSystemSpec reads a system specification from a YAML or JSON file,
// selecting the decoder by file extension. The loaded spec is validated
// before being returned.
func LoadSystemSpec(path string) (*SystemSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read system spec: %w", err)
	}
	var spec SystemSpec
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode system spec %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode system spec %s: %w", path, err)
		}
	}
	if spec.Status == "" {
		spec.Status = StatusPending
	}
	if spec.Metadata.CreatedAt.IsZero() {
		spec.Metadata.CreatedAt = time.Now().UTC()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

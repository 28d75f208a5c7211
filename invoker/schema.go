package invoker

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/agentrelay/agentrelay/core"
)

// ResultSchema builds the JSON schema constraining one agent's output. The
// field set is closed; each optional field is admitted only when the agent
// carries the matching capability:
//
//   - response: always present, always required
//   - uiToolCalls, awaitingUIInteraction: AllowUITools
//   - routingDecision: entry-coordinator role, constrained to the enum of
//     legal targets derived from the system's connection graph
//   - isCompleted, needsFollowup: tool-agent role
//   - storeOperations: AllowStoreOps
//   - agentCalls: AllowAgentCalls
func ResultSchema(agent *core.AgentDefinition, sys *core.SystemSpec) map[string]any {
	properties := map[string]any{
		"response": map[string]any{
			"type":        "string",
			"description": "The reply text shown to the user.",
		},
	}
	required := []string{"response"}

	if agent.AllowUITools {
		properties["uiToolCalls"] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"toolId":              map[string]any{"type": "string"},
					"toolName":            map[string]any{"type": "string"},
					"props":               map[string]any{"type": "string", "description": "Serialized JSON props for the widget."},
					"requiresInteraction": map[string]any{"type": "boolean"},
				},
				"required": []string{"toolId", "toolName"},
			},
		}
		properties["awaitingUIInteraction"] = map[string]any{
			"type":        "boolean",
			"description": "True when the turn must pause until the user interacts with a rendered widget.",
		}
	}

	if agent.Role == core.RoleEntryCoordinator {
		properties["routingDecision"] = map[string]any{
			"type":        "string",
			"enum":        sys.RoutingTargets(agent.ID),
			"description": "The next agent to run, or the terminal marker to end the turn.",
		}
	}

	if agent.Role == core.RoleToolAgent {
		properties["isCompleted"] = map[string]any{"type": "boolean"}
		properties["needsFollowup"] = map[string]any{"type": "boolean"}
	}

	if agent.AllowStoreOps {
		properties["storeOperations"] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{"type": "string", "enum": []string{
						string(core.OpSaveMessage), string(core.OpUpdateSnapshot), string(core.OpCreateSession),
						string(core.OpGetSession), string(core.OpGetSessions), string(core.OpDeleteSession),
					}},
					"role":    map[string]any{"type": "string", "enum": []string{string(core.RoleUser), string(core.RoleAssistant), string(core.RoleSystem)}},
					"content": map[string]any{"type": "string"},
					"data":    map[string]any{"type": "string", "description": "Serialized JSON payload for snapshot operations."},
				},
				"required": []string{"kind"},
			},
		}
	}

	if agent.AllowAgentCalls {
		properties["agentCalls"] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agentId": map[string]any{"type": "string"},
					"request": map[string]any{"type": "string"},
				},
				"required": []string{"agentId", "request"},
			},
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// validateAgainstSchema checks a decoded result object against the schema.
func validateAgainstSchema(schema map[string]any, data any) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(schemaBytes)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	result := compiled.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("result does not satisfy schema: %s", result.Error())
	}
	return nil
}

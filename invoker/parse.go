package invoker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// rawResult mirrors the wire shape emitted by the model. Field names match
// the schema in ResultSchema.
type rawResult struct {
	Response              string         `json:"response"`
	RoutingDecision       *string        `json:"routingDecision,omitempty"`
	UIToolCalls           []rawToolCall  `json:"uiToolCalls,omitempty"`
	AwaitingUIInteraction bool           `json:"awaitingUIInteraction,omitempty"`
	IsCompleted           bool           `json:"isCompleted,omitempty"`
	NeedsFollowup         bool           `json:"needsFollowup,omitempty"`
	StoreOperations       []rawStoreOp   `json:"storeOperations,omitempty"`
	AgentCalls            []rawAgentCall `json:"agentCalls,omitempty"`
}

type rawToolCall struct {
	ToolID              string `json:"toolId"`
	ToolName            string `json:"toolName"`
	Props               string `json:"props,omitempty"`
	RequiresInteraction bool   `json:"requiresInteraction,omitempty"`
}

type rawStoreOp struct {
	Kind    string `json:"kind"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Data    string `json:"data,omitempty"`
}

type rawAgentCall struct {
	AgentID string `json:"agentId"`
	Request string `json:"request"`
}

// codeFenceRe matches markdown code fences wrapping JSON.
var codeFenceRe = regexp.MustCompile("(?si)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeFences removes markdown code fences if the model wrapped its output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// parseResult decodes the raw model output, repairing malformed JSON before
// giving up.
func parseResult(raw json.RawMessage) (*rawResult, any, error) {
	text := stripCodeFences(string(raw))

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, nil, fmt.Errorf("unparseable model output: %w", err)
		}
		if err := json.Unmarshal([]byte(fixed), &decoded); err != nil {
			return nil, nil, fmt.Errorf("repaired output still invalid: %w", err)
		}
		text = fixed
	}

	var result rawResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, decoded, nil
}

// Package anthropic implements model.Generator using the Anthropic Messages
// API. Schema-constrained output is obtained by exposing a single tool whose
// input schema is the result schema and forcing the model to use it; the
// tool_use input block is the structured result.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/agentrelay/agentrelay/model"
)

// Options configures the Anthropic generator adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Generator wraps the Anthropic Messages API behind model.Generator.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// NewGenerator creates a new Anthropic generator using the official client.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// NewGeneratorFromClient creates a new Anthropic generator from an existing client.
func NewGeneratorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// GenerateStructured implements model.Generator.
func (g *Generator) GenerateStructured(ctx context.Context, req model.Request) (json.RawMessage, error) {
	name := req.SchemaName
	if name == "" {
		name = "emit_result"
	}

	params := anthropic.MessageNewParams{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			anthropic.ToolUnionParamOfTool(buildInputSchema(req.Schema), name),
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: name},
		},
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		toolBlock := block.AsToolUse()
		if toolBlock.Name != name {
			continue
		}
		args, err := json.Marshal(toolBlock.Input)
		if err != nil {
			return nil, fmt.Errorf("anthropic: marshal tool input: %w", err)
		}
		return args, nil
	}
	return nil, fmt.Errorf("anthropic: response contained no %s tool_use block", name)
}

// buildInputSchema converts the generic schema map into Anthropic's tool
// input schema parameter.
func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	input := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
	if schema == nil {
		return input
	}
	if properties, ok := schema["properties"]; ok {
		input.Properties = properties
	}
	switch required := schema["required"].(type) {
	case []string:
		input.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				input.Required = append(input.Required, s)
			}
		}
	}
	return input
}

// Info implements model.Generator.
func (g *Generator) Info() model.Info {
	return model.Info{Name: string(g.opts.Model), Provider: "anthropic"}
}

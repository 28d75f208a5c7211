package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/uitool"
)

// ApologyMessage is the fixed user-facing text returned when a model call
// fails. Users never see a raw error or stack trace.
const ApologyMessage = "I'm sorry, I ran into a problem while handling that. Please try again."

// Options configures an Invoker.
type Options struct {
	// Logger receives per-invocation diagnostics.
	Logger logging.Logger
	// SkipValidation disables schema validation of the model output.
	// Parsing and repair still apply.
	SkipValidation bool
}

// Invoker runs a single schema-constrained agent invocation.
type Invoker struct {
	gen      model.Generator
	logger   logging.Logger
	validate bool
}

// New constructs an Invoker over the given generator.
func New(gen model.Generator, optFns ...func(o *Options)) *Invoker {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{gen: gen, logger: opts.Logger, validate: !opts.SkipValidation}
}

// Invoke executes one agent against the conversation history. It never
// returns an error: any model-side failure produces the synthetic apology
// result instead.
func (inv *Invoker) Invoke(
	ctx context.Context,
	agent *core.AgentDefinition,
	sys *core.SystemSpec,
	history []core.Message,
	tools []uitool.Tool,
) core.ExecutionResult {
	schema := ResultSchema(agent, sys)
	req := model.Request{
		Instructions: buildInstructions(agent, sys, tools),
		Prompt:       renderPrompt(history),
		SchemaName:   "emit_result",
		Schema:       schema,
	}

	start := time.Now()
	raw, err := inv.gen.GenerateStructured(ctx, req)
	if err != nil {
		inv.logger.Warn("model call failed agent_id=%s duration=%s error=%v", agent.ID, time.Since(start), err)
		return inv.apology(agent)
	}

	result, decoded, err := parseResult(raw)
	if err != nil {
		inv.logger.Warn("model output unusable agent_id=%s error=%v", agent.ID, err)
		return inv.apology(agent)
	}

	if inv.validate {
		if err := validateAgainstSchema(schema, decoded); err != nil {
			inv.logger.Warn("model output rejected agent_id=%s error=%v", agent.ID, err)
			return inv.apology(agent)
		}
	}

	inv.logger.Debug("agent invoked agent_id=%s duration=%s", agent.ID, time.Since(start))
	return toExecutionResult(agent, result)
}

// apology builds the synthetic never-crash result: one apology message,
// not completed, no routing decision.
func (inv *Invoker) apology(agent *core.AgentDefinition) core.ExecutionResult {
	return core.ExecutionResult{
		Messages: []core.Message{core.NewAgentMessage(agent.ID, ApologyMessage)},
		AgentID:  agent.ID,
	}
}

// toExecutionResult maps the validated wire object onto the domain result.
func toExecutionResult(agent *core.AgentDefinition, raw *rawResult) core.ExecutionResult {
	result := core.ExecutionResult{
		AgentID:    agent.ID,
		Routing:    raw.RoutingDecision,
		Completed:  raw.IsCompleted,
		AwaitingUI: raw.AwaitingUIInteraction,
	}
	if raw.Response != "" {
		result.Messages = append(result.Messages, core.NewAgentMessage(agent.ID, raw.Response))
	}
	for _, tc := range raw.UIToolCalls {
		if !agent.PermitsTool(tc.ToolID) {
			continue
		}
		result.UIToolCalls = append(result.UIToolCalls, core.UIToolCall{
			ToolID:              tc.ToolID,
			ToolName:            tc.ToolName,
			Props:               json.RawMessage(tc.Props),
			RequiresInteraction: tc.RequiresInteraction,
		})
	}
	for _, op := range raw.StoreOperations {
		result.StoreOps = append(result.StoreOps, core.StoreOp{
			Kind:    core.StoreOpKind(op.Kind),
			Role:    core.Role(op.Role),
			Content: op.Content,
			Data:    json.RawMessage(op.Data),
		})
	}
	for _, ac := range raw.AgentCalls {
		result.AgentCalls = append(result.AgentCalls, core.AgentCall{AgentID: ac.AgentID, Request: ac.Request})
	}
	return result
}

// buildInstructions assembles the system instructions: the agent's
// behavioral text plus contextual additions describing its tools and, for
// the coordinator, the routing options.
func buildInstructions(agent *core.AgentDefinition, sys *core.SystemSpec, tools []uitool.Tool) string {
	var b strings.Builder
	b.WriteString(agent.Instructions)

	if agent.Description != "" {
		fmt.Fprintf(&b, "\n\nYou are %q: %s", agent.Name, agent.Description)
	}

	if agent.AllowUITools && len(tools) > 0 {
		b.WriteString("\n\nUI tools available to you:")
		for _, tl := range tools {
			fmt.Fprintf(&b, "\n- %s (%s): %s", tl.Name, tl.ID, tl.Description)
		}
		b.WriteString("\nWhen you render a tool that needs user input, set awaitingUIInteraction to true and wait.")
	}

	if agent.Role == core.RoleEntryCoordinator {
		b.WriteString("\n\nRouting targets:")
		for _, target := range sys.RoutingTargets(agent.ID) {
			if target == core.Terminal {
				fmt.Fprintf(&b, "\n- %s (end the conversation turn)", target)
				continue
			}
			if def := sys.Agent(target); def != nil {
				fmt.Fprintf(&b, "\n- %s: %s", target, def.Description)
			} else {
				fmt.Fprintf(&b, "\n- %s", target)
			}
		}
	}

	return b.String()
}

// renderPrompt flattens the conversation history into the model prompt.
// Agent attribution is preserved so the coordinator can track progress.
func renderPrompt(history []core.Message) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		author := string(m.Role)
		if m.AgentID != "" {
			author = fmt.Sprintf("%s (%s)", m.Role, m.AgentID)
		}
		fmt.Fprintf(&b, "%s: %s\n", author, m.Content)
	}
	b.WriteString("\nProduce your structured result for this turn.")
	return b.String()
}

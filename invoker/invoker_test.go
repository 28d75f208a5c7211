package invoker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/uitool"
)

func TestInvokeMapsResult(t *testing.T) {
	sys := testSystem()
	gen := model.NewMockGenerator().Enqueue(`{"response":"Routing you now.","routingDecision":"faq"}`)

	inv := New(gen)
	result := inv.Invoke(context.Background(), sys.Agent("coordinator"), sys, []core.Message{
		core.NewUserMessage("what are your hours?"),
	}, nil)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, core.RoleAssistant, result.Messages[0].Role)
	assert.Equal(t, "coordinator", result.Messages[0].AgentID)
	assert.True(t, result.RoutesTo("faq"))
	assert.False(t, result.Completed)
	assert.False(t, result.AwaitingUI)
}

func TestInvokeGeneratorFailureYieldsApology(t *testing.T) {
	sys := testSystem()
	gen := model.NewMockGenerator().EnqueueError(errors.New("rate limited"))

	result := New(gen).Invoke(context.Background(), sys.Agent("faq"), sys, nil, nil)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, ApologyMessage, result.Messages[0].Content)
	assert.False(t, result.Completed)
	assert.Nil(t, result.Routing)
}

func TestInvokeRepairsMalformedJSON(t *testing.T) {
	sys := testSystem()
	// Trailing comma plus a markdown fence: both must be healed.
	gen := model.NewMockGenerator().Enqueue("```json\n{\"response\": \"fixed\", \"isCompleted\": true,}\n```")

	result := New(gen).Invoke(context.Background(), sys.Agent("faq"), sys, nil, nil)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, "fixed", result.Messages[0].Content)
	assert.True(t, result.Completed)
}

func TestInvokeSchemaViolationYieldsApology(t *testing.T) {
	sys := testSystem()
	// faq is not a coordinator, so routingDecision is not in its schema and
	// additionalProperties is false.
	gen := model.NewMockGenerator().Enqueue(`{"response":"hi","routingDecision":"ticket"}`)

	result := New(gen).Invoke(context.Background(), sys.Agent("faq"), sys, nil, nil)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, ApologyMessage, result.Messages[0].Content)
}

func TestInvokeFiltersUnpermittedToolCalls(t *testing.T) {
	sys := testSystem()
	gen := model.NewMockGenerator().Enqueue(`{
		"response": "Please fill this in.",
		"uiToolCalls": [
			{"toolId": "contact-form", "toolName": "Contact Form", "requiresInteraction": true},
			{"toolId": "admin-panel", "toolName": "Admin Panel", "requiresInteraction": true}
		],
		"awaitingUIInteraction": true
	}`)

	result := New(gen).Invoke(context.Background(), sys.Agent("coordinator"), sys, nil, nil)

	require.Len(t, result.UIToolCalls, 1)
	assert.Equal(t, "contact-form", result.UIToolCalls[0].ToolID)
	assert.True(t, result.AwaitingUI)
}

func TestInstructionsIncludeToolsAndRouting(t *testing.T) {
	sys := testSystem()
	gen := model.NewMockGenerator().Enqueue(`{"response":"ok"}`)

	tools := []uitool.Tool{{ID: "contact-form", Name: "Contact Form", Description: "Collects details"}}
	New(gen).Invoke(context.Background(), sys.Agent("coordinator"), sys, nil, tools)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, "Contact Form")
	assert.Contains(t, reqs[0].Instructions, "Routing targets:")
	assert.Contains(t, reqs[0].Instructions, core.Terminal)
}

func TestRenderPromptAttribution(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("hello"),
		core.NewAgentMessage("faq", "hi there"),
	}
	prompt := renderPrompt(history)
	assert.Contains(t, prompt, "user: hello")
	assert.Contains(t, prompt, "assistant (faq): hi there")
}

package invoker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/internal/testutil"
)

func testSystem() *core.SystemSpec {
	return testutil.NewSystemBuilder("support").
		Coordinator("coordinator", func(a *core.AgentDefinition) {
			a.AllowUITools = true
			a.UITools = []string{"contact-form"}
		}).
		ToolAgent("faq").
		ToolAgent("ticket", func(a *core.AgentDefinition) { a.AllowStoreOps = true }).
		Connect("coordinator", "faq").
		Connect("coordinator", "ticket").
		Connect("faq", core.Terminal).
		Connect("ticket", core.Terminal).
		Build()
}

func TestResultSchemaCoordinator(t *testing.T) {
	sys := testSystem()
	schema := ResultSchema(sys.Agent("coordinator"), sys)

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "response")
	assert.Contains(t, props, "routingDecision")
	assert.Contains(t, props, "uiToolCalls")
	assert.Contains(t, props, "awaitingUIInteraction")
	assert.NotContains(t, props, "isCompleted")
	assert.NotContains(t, props, "storeOperations")

	routing := props["routingDecision"].(map[string]any)
	assert.Equal(t, []string{"faq", "ticket", core.Terminal}, routing["enum"])
	assert.Equal(t, []string{"response"}, schema["required"])
}

func TestResultSchemaToolAgent(t *testing.T) {
	sys := testSystem()

	props := ResultSchema(sys.Agent("faq"), sys)["properties"].(map[string]any)
	assert.Contains(t, props, "isCompleted")
	assert.Contains(t, props, "needsFollowup")
	assert.NotContains(t, props, "routingDecision")
	assert.NotContains(t, props, "uiToolCalls")

	// Store ops appear only with the capability flag, covering reads and
	// deletes as well as writes.
	ticketProps := ResultSchema(sys.Agent("ticket"), sys)["properties"].(map[string]any)
	assert.Contains(t, ticketProps, "storeOperations")
	assert.NotContains(t, props, "storeOperations")

	items := ticketProps["storeOperations"].(map[string]any)["items"].(map[string]any)
	kind := items["properties"].(map[string]any)["kind"].(map[string]any)
	assert.ElementsMatch(t, []string{
		"save_message", "update_snapshot", "create_session",
		"get_session", "get_sessions", "delete_session",
	}, kind["enum"])
}

func TestValidateAgainstSchema(t *testing.T) {
	sys := testSystem()
	schema := ResultSchema(sys.Agent("faq"), sys)

	ok := map[string]any{"response": "We are open 9-5.", "isCompleted": true}
	require.NoError(t, validateAgainstSchema(schema, ok))

	missing := map[string]any{"isCompleted": true}
	assert.Error(t, validateAgainstSchema(schema, missing))

	extra := map[string]any{"response": "hi", "routingDecision": "faq"}
	assert.Error(t, validateAgainstSchema(schema, extra))
}

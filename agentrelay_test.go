package agentrelay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/internal/testutil"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/runner"
)

func demoSystem() *core.SystemSpec {
	return testutil.NewSystemBuilder("demo").
		Coordinator("coordinator").
		ToolAgent("faq").
		Connect("coordinator", "faq").
		Connect("faq", core.Terminal).
		Build()
}

func TestRunWithDefaults(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.Enqueue(`{"response":"Let me check that for you.","routingDecision":"faq"}`)
	gen.Enqueue(`{"response":"Our office opens at nine.","isCompleted":true}`)

	relay := New(gen)
	require.NoError(t, relay.LoadSystem(demoSystem()))

	result, err := relay.Run(context.Background(), "demo", runner.RunInput{
		Messages:  []core.Message{core.NewUserMessage("When do you open?")},
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "faq", result.AgentID)
	require.Len(t, result.Messages, 2)
}

func TestRunUnknownSystem(t *testing.T) {
	relay := New(model.NewMockGenerator())

	_, err := relay.Run(context.Background(), "nope", runner.RunInput{
		Messages: []core.Message{core.NewUserMessage("hi")},
	})
	assert.ErrorIs(t, err, core.ErrSystemNotLoaded)
}

func TestCircuitBreakerOptionStillAnswers(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.Enqueue(`{"response":"Hello!","routingDecision":"end"}`)

	relay := New(gen, func(o *Options) {
		o.CircuitBreaker = true
	})
	require.NoError(t, relay.LoadSystem(demoSystem()))

	result, err := relay.Run(context.Background(), "demo", runner.RunInput{
		Messages:  []core.Message{core.NewUserMessage("hello")},
		SessionID: "sess-cb",
	})
	require.NoError(t, err)
	assert.True(t, result.Terminal())
}

func TestLoadSystemFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: demo
name: Demo
agents:
  - id: coordinator
    name: Coordinator
    role: entry-coordinator
  - id: faq
    name: FAQ
    role: tool-agent
connections:
  - from: coordinator
    to: faq
  - from: faq
    to: end
`), 0o644))

	relay := New(model.NewMockGenerator())
	spec, err := relay.LoadSystemFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", spec.ID)

	got, err := relay.Runner().System("demo")
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestLoadSystemFileRejectsInvalidSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: bad
name: Bad
agents:
  - id: faq
    name: FAQ
    role: tool-agent
connections: []
`), 0o644))

	relay := New(model.NewMockGenerator())
	_, err := relay.LoadSystemFile(path)
	assert.ErrorIs(t, err, core.ErrNoCoordinator)
}

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/internal/testutil"
	"github.com/agentrelay/agentrelay/invoker"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/session"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

func supportSystem() *core.SystemSpec {
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

type fixture struct {
	gen      *model.MockGenerator
	runner   *Runner
	sessions *session.Store
	persist  *store.Memory
	clock    *time.Time
}

func newFixture(t *testing.T, invOpts ...func(o *invoker.Options)) *fixture {
	t.Helper()
	gen := model.NewMockGenerator()
	sessions := session.NewStore()
	persist := store.NewMemory()
	registry := uitool.NewMemory()
	registry.Register(uitool.Tool{ID: "contact-form", Name: "Contact Form", Description: "Collects contact details"})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	r := New(invoker.New(gen, invOpts...), func(o *Options) {
		o.SessionStore = sessions
		o.PersistStore = persist
		o.ToolRegistry = registry
		o.Clock = func() time.Time { return *clock }
	})
	require.NoError(t, r.LoadSystem(supportSystem()))
	return &fixture{gen: gen, runner: r, sessions: sessions, persist: persist, clock: clock}
}

func TestRunRoutesCoordinatorToFAQ(t *testing.T) {
	f := newFixture(t)
	f.gen.
		Enqueue(`{"response":"Let me check our FAQ.","routingDecision":"faq"}`).
		Enqueue(`{"response":"We are open 9-5 on weekdays.","isCompleted":true}`)

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("what are your hours?")},
		SessionID: "sess-1",
	})
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "coordinator", result.Messages[0].AgentID)
	assert.Equal(t, "faq", result.Messages[1].AgentID)
	assert.Equal(t, 2, f.gen.Calls())

	// Every returned message is in the session log, after the user input.
	st, ok := f.sessions.Get("sess-1")
	require.True(t, ok)
	log := st.Messages()
	require.Len(t, log, 3)
	assert.Equal(t, core.RoleUser, log[0].Role)
	assert.Equal(t, result.Messages[0].Content, log[1].Content)
	assert.Equal(t, result.Messages[1].Content, log[2].Content)
}

func TestRunSystemNotLoaded(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Run(context.Background(), "nope", RunInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSystemNotLoaded)
}

func TestLoadSystemRequiresSingleCoordinator(t *testing.T) {
	f := newFixture(t)

	sys := supportSystem()
	sys.ID = "twins"
	sys.Agents = append(sys.Agents, core.AgentDefinition{ID: "coordinator2", Role: core.RoleEntryCoordinator})
	sys.Connections = nil

	err := f.runner.LoadSystem(sys)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCoordinator)
}

func TestRunUnknownRoutingTargetEndsTurn(t *testing.T) {
	// Validation off so an out-of-enum target reaches the routing loop.
	f := newFixture(t, func(o *invoker.Options) { o.SkipValidation = true })
	f.gen.Enqueue(`{"response":"Sending you to billing.","routingDecision":"billing"}`)

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("refund please")},
		SessionID: "sess-2",
	})
	require.NoError(t, err)

	// The invalid target closes the turn instead of raising.
	assert.True(t, result.Completed)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestRunGeneratorFailureYieldsSingleApology(t *testing.T) {
	f := newFixture(t)
	f.gen.EnqueueError(errors.New("quota exceeded"))

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("hello")},
		SessionID: "sess-3",
	})
	require.NoError(t, err)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, invoker.ApologyMessage, result.Messages[0].Content)
	assert.False(t, result.Completed)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestRunSuspendsOnAwaitingUI(t *testing.T) {
	f := newFixture(t)
	f.gen.Enqueue(`{
		"response": "Please fill in the form below.",
		"uiToolCalls": [{"toolId": "contact-form", "toolName": "Contact Form", "requiresInteraction": true}],
		"awaitingUIInteraction": true
	}`)

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("I want to leave my details")},
		UITools:   []string{"contact-form"},
		SessionID: "sess-4",
	})
	require.NoError(t, err)

	assert.True(t, result.AwaitingUI)
	assert.False(t, result.Completed)
	require.Len(t, result.UIToolCalls, 1)
	assert.Equal(t, "contact-form", result.UIToolCalls[0].ToolID)
	assert.Equal(t, 1, f.gen.Calls())

	// The coordinator saw the registered tool in its instructions.
	reqs := f.gen.Requests()
	assert.Contains(t, reqs[0].Instructions, "Contact Form")
}

func TestRunIterationCapTerminates(t *testing.T) {
	f := newFixture(t, func(o *invoker.Options) { o.SkipValidation = true })
	f.gen.Fallback = func(model.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"response":"still thinking","routingDecision":"coordinator"}`), nil
	}

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("loop")},
		SessionID: "sess-5",
	})
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, defaultMaxIterations, f.gen.Calls())
	assert.Len(t, result.Messages, defaultMaxIterations)
}

func TestRunForwardsAndDeduplicatesStoreOps(t *testing.T) {
	f := newFixture(t)
	response := "Ticket TCK-7 created."
	script := `{
		"response": "` + response + `",
		"isCompleted": true,
		"storeOperations": [
			{"kind": "create_session"},
			{"kind": "save_message", "role": "assistant", "content": "` + response + `"}
		]
	}`
	f.gen.
		Enqueue(`{"response":"Raising a ticket.","routingDecision":"ticket"}`).
		Enqueue(script).
		Enqueue(`{"response":"Checking the ticket.","routingDecision":"ticket"}`).
		Enqueue(script)

	in := RunInput{Messages: []core.Message{core.NewUserMessage("my printer is on fire")}, SessionID: "sess-6"}
	result, err := f.runner.Run(context.Background(), "support", in)
	require.NoError(t, err)

	// Each forwarded operation reports its outcome in the result.
	require.Len(t, result.StoreOpResults, 2)
	assert.Equal(t, core.OpCreateSession, result.StoreOpResults[0].Kind)
	assert.True(t, result.StoreOpResults[0].Success)
	assert.Equal(t, core.OpSaveMessage, result.StoreOpResults[1].Kind)
	assert.True(t, result.StoreOpResults[1].Success)

	// Same content requested again on the next turn must not produce a
	// second row.
	in.Messages = []core.Message{core.NewUserMessage("did that go through?")}
	_, err = f.runner.Run(context.Background(), "support", in)
	require.NoError(t, err)

	saved := f.persist.Messages("sess-6")
	require.Len(t, saved, 1)
	assert.Equal(t, core.RoleAssistant, saved[0].Role)
	assert.Equal(t, response, saved[0].Content)

	rec, err := f.persist.GetSession(context.Background(), "sess-6")
	require.NoError(t, err)
	assert.Equal(t, "support", rec.SystemID)
}

func TestRunMintsSessionIDWhenAbsent(t *testing.T) {
	f := newFixture(t)
	f.gen.Enqueue(`{"response":"hi","routingDecision":"end"}`)

	_, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages: []core.Message{core.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestRunPersistenceFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.runner.persist = failingStore{}
	f.gen.
		Enqueue(`{"response":"Raising a ticket.","routingDecision":"ticket"}`).
		Enqueue(`{"response":"done","isCompleted":true,"storeOperations":[{"kind":"save_message","role":"assistant","content":"done"}]}`)

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("help")},
		SessionID: "sess-7",
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	require.Len(t, result.Messages, 2)

	// The failure is reported as data in the result, not swallowed.
	require.Len(t, result.StoreOpResults, 1)
	assert.Equal(t, core.OpSaveMessage, result.StoreOpResults[0].Kind)
	assert.False(t, result.StoreOpResults[0].Success)
	assert.Equal(t, errDown.Error(), result.StoreOpResults[0].Error)
}

func TestRunStoreReadOpsReturnData(t *testing.T) {
	f := newFixture(t)
	f.gen.
		Enqueue(`{"response":"Looking up your history.","routingDecision":"ticket"}`).
		Enqueue(`{
			"response": "Cleared your session history.",
			"isCompleted": true,
			"storeOperations": [
				{"kind": "create_session"},
				{"kind": "get_session"},
				{"kind": "get_sessions"},
				{"kind": "delete_session"}
			]
		}`)

	result, err := f.runner.Run(context.Background(), "support", RunInput{
		Messages:  []core.Message{core.NewUserMessage("wipe my data")},
		SessionID: "sess-8",
	})
	require.NoError(t, err)

	require.Len(t, result.StoreOpResults, 4)
	for _, out := range result.StoreOpResults {
		assert.True(t, out.Success, "op %s", out.Kind)
	}

	// Read operations carry their payload back as data.
	assert.Contains(t, string(result.StoreOpResults[1].Data), `"sess-8"`)
	assert.Contains(t, string(result.StoreOpResults[2].Data), `"support"`)

	// The delete went through.
	_, err = f.persist.GetSession(context.Background(), "sess-8")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

type failingStore struct{}

func (failingStore) CreateSession(context.Context, store.SessionRecord) error { return errDown }
func (failingStore) SaveMessage(context.Context, store.MessageRecord) error   { return errDown }
func (failingStore) UpdateSnapshot(context.Context, string, json.RawMessage) error {
	return errDown
}
func (failingStore) GetSession(context.Context, string) (store.SessionRecord, error) {
	return store.SessionRecord{}, errDown
}
func (failingStore) GetSessions(context.Context, string) ([]store.SessionRecord, error) {
	return nil, errDown
}
func (failingStore) DeleteSession(context.Context, string) error { return errDown }

var errDown = errors.New("store unavailable")

var _ store.Store = failingStore{}

package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
)

func TestRecorderHandle(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("sess-1", "sys-1")
	rec := NewRecorder(store, nil)

	var got []core.UIEvent
	rec.RegisterHandler("sess-1", func(ev core.UIEvent) { got = append(got, ev) })

	err := rec.Handle(core.UIEvent{
		SessionID: "sess-1",
		ToolID:    "contact-form",
		Type:      core.EventFormSubmit,
		RawData:   json.RawMessage(`{"email":"a@b.c"}`),
	})
	require.NoError(t, err)

	// Event recorded against the session with a decoded payload.
	st, ok := store.Get("sess-1")
	require.True(t, ok)
	require.Len(t, st.UIEvents(), 1)
	assert.Equal(t, core.FormPayload{Fields: map[string]string{"email": "a@b.c"}}, st.UIEvents()[0].Data)

	// Callback invoked synchronously.
	require.Len(t, got, 1)
	assert.Equal(t, "contact-form", got[0].ToolID)
}

func TestRecorderUnknownSession(t *testing.T) {
	rec := NewRecorder(NewStore(), nil)
	err := rec.Handle(core.UIEvent{SessionID: "ghost"})
	assert.Error(t, err)
}

func TestRecorderLastWriterWins(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("sess-1", "sys-1")
	rec := NewRecorder(store, nil)

	firstCalled := false
	secondCalled := false
	rec.RegisterHandler("sess-1", func(core.UIEvent) { firstCalled = true })
	rec.RegisterHandler("sess-1", func(core.UIEvent) { secondCalled = true })

	require.NoError(t, rec.Handle(core.UIEvent{SessionID: "sess-1", ToolID: "t", Type: core.EventClick}))
	assert.False(t, firstCalled)
	assert.True(t, secondCalled)

	// nil unregisters.
	rec.RegisterHandler("sess-1", nil)
	secondCalled = false
	require.NoError(t, rec.Handle(core.UIEvent{SessionID: "sess-1", ToolID: "t", Type: core.EventClick}))
	assert.False(t, secondCalled)
}

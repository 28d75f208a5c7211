package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
)

func TestStateAppendOnly(t *testing.T) {
	st := NewState("sess-1", "sys-1")
	st.Append(core.NewUserMessage("hello"))

	first := st.Messages()
	require.Len(t, first, 1)

	st.Append(core.NewAgentMessage("coordinator", "hi"), core.NewAgentMessage("faq", "answer"))
	second := st.Messages()
	require.Len(t, second, 3)

	// Prefix-extension: the earlier snapshot is a prefix of the later one.
	for i, m := range first {
		assert.Equal(t, m.ID, second[i].ID)
	}
}

func TestStateConcurrentAppend(t *testing.T) {
	st := NewState("sess-1", "sys-1")

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				st.Append(core.NewUserMessage(fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, st.Len())
}

func TestHasPersisted(t *testing.T) {
	st := NewState("sess-1", "sys-1")
	st.Append(core.NewUserMessage("what are your hours?"))

	assert.False(t, st.HasPersisted(core.RoleUser, "what are your hours?"))

	st.MarkPersisted(core.RoleUser, "what are your hours?")
	assert.True(t, st.HasPersisted(core.RoleUser, "what are your hours?"))

	// Different role or content does not match.
	assert.False(t, st.HasPersisted(core.RoleAssistant, "what are your hours?"))
	assert.False(t, st.HasPersisted(core.RoleUser, "what are your hours"))
}

func TestRecordInteraction(t *testing.T) {
	st := NewState("sess-1", "sys-1")
	now := time.Now().UTC()

	st.RecordInteraction(core.UIEvent{
		ToolID:    "contact-form",
		Type:      core.EventFormSubmit,
		SessionID: "sess-1",
		AgentID:   "coordinator",
	}, now)

	require.Len(t, st.UIEvents(), 1)
	hist := st.Interactions()
	require.Len(t, hist, 1)
	assert.Equal(t, "contact-form", hist[0].ToolID)
	assert.Equal(t, now, hist[0].Timestamp)
	assert.Equal(t, now, st.LastInteraction())
}

func TestPending(t *testing.T) {
	st := NewState("sess-1", "sys-1")
	st.SetPending("k", 42)

	v, ok := st.TakePending("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = st.TakePending("k")
	assert.False(t, ok)
}

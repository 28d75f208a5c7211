package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()

	st := s.GetOrCreate("sess-1", "sys-1")
	require.NotNil(t, st)
	assert.Equal(t, "sys-1", st.SystemID)

	// Same id returns the same state; the owner never changes.
	again := s.GetOrCreate("sess-1", "sys-other")
	assert.Same(t, st, again)
	assert.Equal(t, "sys-1", again.SystemID)
}

func TestStoreAppendTagsUnpersisted(t *testing.T) {
	s := NewStore()

	msg := core.NewUserMessage("hello")
	msg.Persist = core.Persisted // incoming flag must be ignored
	st := s.AppendMessages("sess-1", "sys-1", []core.Message{msg})

	got := st.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, core.Unpersisted, got[0].Persist)
}

func TestStoreBounded(t *testing.T) {
	s := NewStore(func(o *Options) { o.MaxSessions = 4 })

	for i := 0; i < 10; i++ {
		s.GetOrCreate(fmt.Sprintf("sess-%d", i), "sys-1")
	}
	assert.Equal(t, 4, s.Len())

	// Oldest sessions were evicted, newest survive.
	_, ok := s.Get("sess-0")
	assert.False(t, ok)
	_, ok = s.Get("sess-9")
	assert.True(t, ok)
}

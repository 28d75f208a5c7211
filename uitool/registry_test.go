package uitool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/agentrelay/core"
)

// Interface compliance (compile-time assertions)
var (
	_ Registry = (*Memory)(nil)
	_ Registry = (*Dir)(nil)
	_ Writer   = (*Memory)(nil)
	_ Writer   = (*Dir)(nil)
)

func TestMemoryRegistry(t *testing.T) {
	reg := NewMemory()
	reg.Register(Tool{ID: "contact-form", Name: "Contact Form", Description: "Collects contact details"})
	reg.Register(Tool{ID: "plan-picker", Name: "Plan Picker"})

	got, err := reg.Resolve("contact-form")
	require.NoError(t, err)
	assert.Equal(t, "Contact Form", got.Name)

	_, err = reg.Resolve("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := reg.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "contact-form", all[0].ID)

	require.NoError(t, reg.Delete("contact-form"))
	_, err = reg.Resolve("contact-form")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistryStoresSource(t *testing.T) {
	reg := NewMemory()
	source := []byte("export default function PlanPicker() { return null }")
	require.NoError(t, reg.Put(Tool{ID: "plan-picker", Name: "Plan Picker"}, source))

	got, err := reg.Source("plan-picker")
	require.NoError(t, err)
	assert.Equal(t, source, got)

	require.NoError(t, reg.Delete("plan-picker"))
	_, err = reg.Source("plan-picker")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, reg.Put(Tool{}, nil))
}

func TestDirRegistry(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	tool := Tool{ID: "contact-form", Name: "Contact Form", Description: "Collects contact details"}
	source := []byte("export default function ContactForm() { return null }")
	require.NoError(t, dir.Put(tool, source))

	got, err := dir.Resolve("contact-form")
	require.NoError(t, err)
	assert.Equal(t, tool, got)

	src, err := dir.Source("contact-form")
	require.NoError(t, err)
	assert.Equal(t, source, src)

	all, err := dir.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, dir.Delete("contact-form"))
	_, err = dir.Resolve("contact-form")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = dir.Source("contact-form")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("rejects path traversal ids", func(t *testing.T) {
		assert.Error(t, dir.Put(Tool{ID: "../escape"}, nil))
	})
}

func TestFilterForAgent(t *testing.T) {
	reg := NewMemory()
	reg.Register(Tool{ID: "a", Name: "A"})
	reg.Register(Tool{ID: "b", Name: "B"})

	agent := &core.AgentDefinition{
		ID:           "iface",
		AllowUITools: true,
		UITools:      []string{"a", "missing"},
	}
	tools := FilterForAgent(reg, agent)
	require.Len(t, tools, 1)
	assert.Equal(t, "a", tools[0].ID)

	// Capability flag off means no tools regardless of the permitted list.
	agent.AllowUITools = false
	assert.Nil(t, FilterForAgent(reg, agent))
}

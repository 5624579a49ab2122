package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

func TestResponseFormatCarriesSchema(t *testing.T) {
	def := reasoning.Object(map[string]any{"ok": reasoning.Prop("boolean", "")}, "ok")
	rf := responseFormat(&reasoning.Schema{Name: "reflection", Description: "d", Definition: def})

	require.NotNil(t, rf.OfJSONSchema)
	assert.Equal(t, "reflection", rf.OfJSONSchema.JSONSchema.Name)
	assert.Equal(t, def, rf.OfJSONSchema.JSONSchema.Schema)
}

func TestNewAppliesDefaults(t *testing.T) {
	p := New(&Config{APIKey: "k"})
	assert.Equal(t, "gpt-4o-mini", p.config.Model)
	assert.NotNil(t, New(nil).config)
}

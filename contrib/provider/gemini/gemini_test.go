package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

func TestConvertSchema(t *testing.T) {
	def := reasoning.Object(map[string]any{
		"decision": reasoning.Enum("next move", "continue", "complete"),
		"steps": reasoning.Array(reasoning.Object(map[string]any{
			"tool": reasoning.Prop("string", ""),
		}, "tool")),
		"confidence": reasoning.Prop("number", "0..1"),
	}, "decision", "steps")

	s := convertSchema(def)
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"decision", "steps"}, s.Required)
	assert.Equal(t, []string{"continue", "complete"}, s.Properties["decision"].Enum)
	assert.Equal(t, genai.TypeArray, s.Properties["steps"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["steps"].Items.Properties["tool"].Type)
	assert.Equal(t, "0..1", s.Properties["confidence"].Description)
}

func TestConvertSchemaNil(t *testing.T) {
	assert.Nil(t, convertSchema(nil))
}

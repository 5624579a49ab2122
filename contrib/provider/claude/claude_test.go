package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

func TestSystemPromptWithoutSchema(t *testing.T) {
	got, err := systemPrompt(&reasoning.Request{System: "be brief", User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "be brief", got)
}

func TestSystemPromptAppendsSchema(t *testing.T) {
	req := &reasoning.Request{
		System: "be brief",
		User:   "x",
		Schema: &reasoning.Schema{Name: "r", Definition: reasoning.Object(map[string]any{
			"ok": reasoning.Prop("boolean", ""),
		}, "ok")},
	}
	got, err := systemPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, got, "be brief\n\n")
	assert.Contains(t, got, `"required":["ok"]`)
}

func TestNewAppliesDefaults(t *testing.T) {
	p := New(&Config{APIKey: "k"})
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.config.Model)
	assert.Equal(t, int64(2000), p.config.MaxTokens)
}

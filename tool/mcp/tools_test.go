package mcp

import (
	"context"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersFromSchema(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search query",
			},
			"limit": map[string]any{
				"type":        "number",
				"description": "maximum items",
				"default":     10,
			},
			"tags": map[string]any{
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"query"},
	}

	params := parametersFromSchema(schema)
	require.Len(t, params, 3)
	assert.Equal(t, "limit", params[0].Name)
	assert.Equal(t, "query", params[1].Name)
	assert.True(t, params[1].Required)
	assert.False(t, params[0].Required)
	assert.Equal(t, "array", params[2].Type)
}

func TestParametersFromRawSchema(t *testing.T) {
	params := parametersFromSchema([]byte(`{"type":"object","properties":{"path":{"type":"string","enum":["a","b"]}},"required":["path"]}`))
	require.Len(t, params, 1)
	assert.Equal(t, []string{"a", "b"}, params[0].Enum)
	assert.True(t, params[0].Required)
}

func TestParametersFromNonObjectSchema(t *testing.T) {
	assert.Nil(t, parametersFromSchema(map[string]any{"type": "string"}))
	assert.Nil(t, parametersFromSchema(nil))
}

func TestConvertToolsSkipsUnnamed(t *testing.T) {
	tools := convertTools([]*sdkmcp.Tool{
		nil,
		{Name: ""},
		{Name: "browser_open", Annotations: &sdkmcp.ToolAnnotations{Title: "Open a page"}},
	})
	require.Len(t, tools, 1)
	assert.Equal(t, "browser_open", tools[0].Name)
	assert.Equal(t, "Open a page", tools[0].Description)
}

func TestNewProviderValidatesConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Transport: TransportStreamable})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Transport: TransportCommand})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestClosedClientListTools(t *testing.T) {
	_, err := (&Client{}).ListAllTools(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestWithPrefix(t *testing.T) {
	tools := convertTools([]*sdkmcp.Tool{{Name: "open_page"}, {Name: "run_bash"}})
	assert.Same(t, tools[0], withPrefix(tools, "")[0])

	prefixed := withPrefix(tools, "browser")
	require.Len(t, prefixed, 2)
	assert.Equal(t, "browser__open_page", prefixed[0].Name)
	assert.Equal(t, "browser__run_bash", prefixed[1].Name)
}

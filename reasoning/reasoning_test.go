package reasoning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aperrors "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/reasoning/reasoningtest"
)

func TestCallReturnsResponse(t *testing.T) {
	client := reasoningtest.New(`{"ok":true}`)
	resp, err := reasoning.Call(context.Background(), client, &reasoning.Request{User: "hi"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
}

func TestCallDeadlineDoesNotWaitForProvider(t *testing.T) {
	client := reasoningtest.Slow(2*time.Second, "late")

	start := time.Now()
	_, err := reasoning.Call(context.Background(), client, &reasoning.Request{User: "hi"}, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, aperrors.ErrDeadlineExceeded))
	assert.Less(t, elapsed, time.Second)
}

func TestCallPropagatesProviderError(t *testing.T) {
	_, err := reasoning.Call(context.Background(), reasoningtest.Failing(), &reasoning.Request{User: "hi"}, time.Second)
	assert.ErrorIs(t, err, reasoningtest.ErrScripted)
}

func TestCallRejectsEmptyResponse(t *testing.T) {
	_, err := reasoning.Call(context.Background(), reasoningtest.New("   "), &reasoning.Request{User: "hi"}, time.Second)
	assert.ErrorIs(t, err, aperrors.ErrEmptyResponse)
}

func TestCallValidatesRequest(t *testing.T) {
	_, err := reasoning.Call(context.Background(), reasoningtest.New("x"), &reasoning.Request{}, time.Second)
	assert.Error(t, err)

	_, err = reasoning.Call(context.Background(), nil, &reasoning.Request{User: "x"}, time.Second)
	assert.Error(t, err)

	_, err = reasoning.Call(context.Background(), reasoningtest.New("x"), &reasoning.Request{User: "x", Temperature: 3}, time.Second)
	assert.Error(t, err)
}

func TestCallHonoursParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reasoning.Call(ctx, reasoningtest.Slow(time.Second, "x"), &reasoning.Request{User: "hi"}, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `{"name":"a"}`, want: "a"},
		{name: "fenced", raw: "```json\n{\"name\":\"b\"}\n```", want: "b"},
		{name: "prose around", raw: "Sure! {\"name\":\"c\"} hope that helps", want: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := reasoning.Decode[payload](tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Name)
		})
	}

	_, err := reasoning.Decode[payload]("not json")
	assert.Error(t, err)
	_, err = reasoning.Decode[payload]("")
	assert.Error(t, err)
}

func TestSchemaHelpers(t *testing.T) {
	s := reasoning.Object(map[string]any{
		"kind": reasoning.Enum("kind", "a", "b"),
		"n":    reasoning.Prop("number", ""),
		"xs":   reasoning.Array(reasoning.Prop("string", "")),
	}, "kind")

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"kind"}, s["required"])
	props := s["properties"].(map[string]any)
	assert.Equal(t, []string{"a", "b"}, props["kind"].(map[string]any)["enum"])
	assert.Equal(t, "array", props["xs"].(map[string]any)["type"])
}

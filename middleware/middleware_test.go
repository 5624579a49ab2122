package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

type recordingMiddleware struct {
	name  string
	err   error
	order *[]string
}

func (m *recordingMiddleware) Name() string { return m.name }

func (m *recordingMiddleware) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name)
	if m.err != nil {
		return m.err
	}
	return next(ctx)
}

func TestMiddlewareChain(t *testing.T) {
	t.Run("empty chain executes final handler", func(t *testing.T) {
		executed := false
		err := NewChain().Execute(&Context{}, func(ctx *Context) error {
			executed = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, executed)
	})

	t.Run("middleware chain executes in order", func(t *testing.T) {
		var order []string
		chain := NewChain(
			&recordingMiddleware{name: "m1", order: &order},
			&recordingMiddleware{name: "m2", order: &order},
		)
		err := chain.Execute(&Context{}, func(c *Context) error {
			order = append(order, "final")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2", "final"}, order)
	})

	t.Run("error stops chain execution", func(t *testing.T) {
		var order []string
		chain := NewChain(
			&recordingMiddleware{name: "m1", err: errors.New("test error"), order: &order},
			&recordingMiddleware{name: "m2", order: &order},
		)
		finalCalled := false
		err := chain.Execute(&Context{}, func(c *Context) error {
			finalCalled = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, finalCalled)
		assert.Equal(t, []string{"m1"}, order)
	})
}

func TestWrapRunsChainAroundClient(t *testing.T) {
	var order []string
	client := reasoning.ClientFunc(func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
		order = append(order, "client:"+req.User)
		return &reasoning.Response{Text: "ok"}, nil
	})

	wrapped := Wrap(client, &recordingMiddleware{name: "outer", order: &order})
	resp, err := wrapped.Generate(context.Background(), &reasoning.Request{User: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, []string{"outer", "client:hi"}, order)
}

func TestWrapWithoutMiddlewareReturnsClient(t *testing.T) {
	client := reasoning.ClientFunc(func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
		return nil, nil
	})
	assert.NotNil(t, Wrap(client))
}

func TestWrapReportsMissingResponse(t *testing.T) {
	client := reasoning.ClientFunc(func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
		return &reasoning.Response{Text: "unused"}, nil
	})
	wrapped := Wrap(client, shortCircuitMiddleware{})

	_, err := wrapped.Generate(context.Background(), &reasoning.Request{User: "hi"})
	assert.ErrorIs(t, err, ErrMiddlewareChainFailed)
}

type shortCircuitMiddleware struct{}

func (shortCircuitMiddleware) Name() string                         { return "short" }
func (shortCircuitMiddleware) Execute(ctx *Context, next Handler) error { return nil }

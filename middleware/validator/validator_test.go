package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweetpotato0/ai-autopilot/middleware"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

func TestRequestValidator(t *testing.T) {
	t.Run("accepts valid request", func(t *testing.T) {
		v := NewRequestValidator(nil)
		called := false
		err := v.Execute(&middleware.Context{Request: &reasoning.Request{User: "plan this"}}, func(c *middleware.Context) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("rejects empty request", func(t *testing.T) {
		v := NewRequestValidator(nil)
		err := v.Execute(&middleware.Context{Request: &reasoning.Request{}}, func(c *middleware.Context) error {
			t.Fatal("next should not run")
			return nil
		})
		assert.ErrorIs(t, err, middleware.ErrInvalidInput)
	})

	t.Run("rejects nil request", func(t *testing.T) {
		err := NewRequestValidator(nil).Execute(&middleware.Context{}, func(c *middleware.Context) error { return nil })
		assert.ErrorIs(t, err, middleware.ErrInvalidInput)
	})

	t.Run("custom validator", func(t *testing.T) {
		v := NewRequestValidator(func(r *reasoning.Request) error {
			if r.Operation == "" {
				return errors.New("operation required")
			}
			return nil
		})
		err := v.Execute(&middleware.Context{Request: &reasoning.Request{User: "x"}}, func(c *middleware.Context) error { return nil })
		assert.ErrorIs(t, err, middleware.ErrInvalidInput)
		assert.Contains(t, err.Error(), "operation required")
	})
}

func TestResponseFilter(t *testing.T) {
	f := NewResponseFilter(TrimSpace)
	ctx := &middleware.Context{}
	err := f.Execute(ctx, func(c *middleware.Context) error {
		c.Response = &reasoning.Response{Text: "  {\"a\":1}\n"}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1}`, ctx.Response.Text)
}

func TestResponseFilterPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := NewResponseFilter(TrimSpace).Execute(&middleware.Context{}, func(c *middleware.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

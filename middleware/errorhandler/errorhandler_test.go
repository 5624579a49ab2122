package errorhandler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweetpotato0/ai-autopilot/middleware"
)

func TestErrorHandler(t *testing.T) {
	t.Run("catches error from next middleware", func(t *testing.T) {
		errorCaught := false
		handler := NewErrorHandler(func(err error) error {
			errorCaught = true
			return nil
		})

		err := handler.Execute(&middleware.Context{}, func(c *middleware.Context) error {
			return errors.New("test error")
		})

		assert.NoError(t, err)
		assert.True(t, errorCaught)
	})

	t.Run("passes through non-errors", func(t *testing.T) {
		handlerCalled := false
		handler := NewErrorHandler(func(err error) error {
			handlerCalled = true
			return err
		})

		err := handler.Execute(&middleware.Context{}, func(c *middleware.Context) error {
			return nil
		})

		assert.NoError(t, err)
		assert.False(t, handlerCalled)
	})

	t.Run("recovers panics", func(t *testing.T) {
		handler := NewErrorHandler(nil)
		ctx := &middleware.Context{}

		err := handler.Execute(ctx, func(c *middleware.Context) error {
			panic("provider exploded")
		})

		assert.ErrorIs(t, err, middleware.ErrMiddlewareChainFailed)
		assert.Contains(t, err.Error(), "provider exploded")
		assert.Equal(t, err, ctx.Error)
	})
}

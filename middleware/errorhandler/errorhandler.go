package errorhandler

import (
	"fmt"

	"github.com/sweetpotato0/ai-autopilot/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(error) error

// ErrorHandler converts provider panics into errors and lets callers remap
// failures before they reach the decision components.
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors and panics from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", middleware.ErrMiddlewareChainFailed, r)
			ctx.Error = err
			if m.handler != nil {
				err = m.handler(err)
			}
		}
	}()

	err = next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}

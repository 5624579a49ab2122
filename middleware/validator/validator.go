package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/middleware"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

// ValidatorFunc validates an outgoing request
type ValidatorFunc func(*reasoning.Request) error

// FilterFunc transforms or filters responses
type FilterFunc func(*reasoning.Response) error

// RequestValidator rejects malformed requests before they reach a provider.
type RequestValidator struct {
	validator ValidatorFunc
}

// NewRequestValidator creates a validation middleware. A nil validator
// falls back to reasoning.Request.Validate.
func NewRequestValidator(validator ValidatorFunc) *RequestValidator {
	if validator == nil {
		validator = func(r *reasoning.Request) error { return r.Validate() }
	}
	return &RequestValidator{validator: validator}
}

// Name returns the middleware name
func (m *RequestValidator) Name() string {
	return "RequestValidator"
}

// Execute validates the request
func (m *RequestValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if ctx.Request == nil {
		return fmt.Errorf("%w: request is nil", middleware.ErrInvalidInput)
	}
	if err := m.validator(ctx.Request); err != nil {
		return fmt.Errorf("%w: %v", middleware.ErrInvalidInput, err)
	}
	return next(ctx)
}

// ResponseFilter filters or transforms the response
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil {
		return err
	}
	if ctx.Response != nil && m.filter != nil {
		return m.filter(ctx.Response)
	}
	return nil
}

// TrimSpace strips surrounding whitespace from response text.
func TrimSpace(resp *reasoning.Response) error {
	resp.Text = strings.TrimSpace(resp.Text)
	return nil
}

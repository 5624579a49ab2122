package middleware

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

// Context represents the middleware execution context of one reasoning call
type Context struct {
	// Request sent to the provider
	Request *reasoning.Request

	// Response from the provider
	Response *reasoning.Response

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]interface{}

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, req *reasoning.Request) *Context {
	return &Context{
		Request:  req,
		Metadata: make(map[string]interface{}),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify requests/responses around a reasoning call
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// List returns the middlewares in execution order.
func (c *MiddlewareChain) List() []Middleware {
	return append([]Middleware(nil), c.middlewares...)
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	// Create a handler for the next middleware
	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	// Execute current middleware
	return c.middlewares[index].Execute(ctx, nextHandler)
}

type wrapped struct {
	client reasoning.Client
	chain  *MiddlewareChain
}

// Wrap returns a reasoning.Client that runs every call through the chain.
func Wrap(client reasoning.Client, middlewares ...Middleware) reasoning.Client {
	if len(middlewares) == 0 {
		return client
	}
	return &wrapped{client: client, chain: NewChain(middlewares...)}
}

func (w *wrapped) Generate(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
	mwCtx := NewContext(ctx, req)
	err := w.chain.Execute(mwCtx, func(c *Context) error {
		resp, err := w.client.Generate(c.Context(), c.Request)
		if err != nil {
			c.Error = err
			return err
		}
		c.Response = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mwCtx.Response == nil {
		return nil, fmt.Errorf("%w: no response produced", ErrMiddlewareChainFailed)
	}
	return mwCtx.Response, nil
}

// Package reasoning defines the boundary to the text-generation service that
// the reflection engine, task planner and diagnostic analyzer consult.
//
// Every call is a single outstanding request raced against a deadline (see
// Call). Callers treat a deadline expiry exactly like a transport error and
// fall through to their deterministic fallback.
package reasoning

import (
	"context"
	"fmt"
	"strings"
)

// Client is implemented by every reasoning-service provider.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Generate implements Client.
func (f ClientFunc) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request is one system+user exchange.
type Request struct {
	// Operation names the caller (reflect, plan, diagnose, alternatives) for
	// logging and tracing.
	Operation   string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// Schema, when set, asks the provider for structured JSON output.
	Schema *Schema
}

// Validate reports malformed requests before they reach a provider.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("reasoning: request cannot be nil")
	}
	if strings.TrimSpace(r.User) == "" {
		return fmt.Errorf("reasoning: user message cannot be empty")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("reasoning: temperature %.2f out of range", r.Temperature)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("reasoning: max tokens cannot be negative")
	}
	return nil
}

// Response carries the single text payload returned by the service.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Schema is a JSON Schema describing the expected response object.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Object builds an object schema with the given properties. Every property
// listed in required must exist in props.
func Object(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Array builds an array schema.
func Array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

// Prop builds a scalar property schema.
func Prop(typ, description string) map[string]any {
	p := map[string]any{"type": typ}
	if description != "" {
		p["description"] = description
	}
	return p
}

// Enum builds a string enum property schema.
func Enum(description string, values ...string) map[string]any {
	p := Prop("string", description)
	p["enum"] = values
	return p
}

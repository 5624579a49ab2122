package tool

import (
	"context"
	"fmt"
)

// Provider supplies tool definitions from an external source.
type Provider interface {
	// Tools returns the provider's current tool definitions.
	Tools(ctx context.Context) ([]*Tool, error)
	// Close releases resources owned by the provider.
	Close() error
}

// Load fetches tools from p and upserts them into r.
func Load(ctx context.Context, r *Registry, p Provider) (int, error) {
	tools, err := p.Tools(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tools: %w", err)
	}
	for _, t := range tools {
		if err := r.Upsert(t); err != nil {
			return 0, err
		}
	}
	return len(tools), nil
}

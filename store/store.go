// Package store provides the append-only record logs behind the episodic
// memory and the outcome tracker. Every backend stores one JSON document
// per record and returns records in append order.
package store

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ai-autopilot/config"
)

// Log is an append-only sequence of records.
type Log[T any] interface {
	// Append durably adds one record to the end of the log.
	Append(ctx context.Context, rec T) error
	// ReadAll returns every readable record in append order. Records that
	// cannot be decoded are skipped with a warning.
	ReadAll(ctx context.Context) ([]T, error)
	// Close releases the backend.
	Close() error
}

// Rewriter is implemented by logs that can replace their whole content.
// The episodic memory uses it to persist re-embedded episodes.
type Rewriter[T any] interface {
	Rewrite(ctx context.Context, recs []T) error
}

// Open selects a backend from configuration. kind namespaces records when a
// backend is shared between record types.
func Open[T any](ctx context.Context, cfg config.StoreConfig, kind string) (Log[T], error) {
	switch cfg.Backend {
	case config.BackendJSONL, "":
		return NewJSONLLog[T](cfg.Path), nil
	case config.BackendMemory:
		return NewMemoryLog[T](), nil
	case config.BackendRedis:
		return NewRedisLog[T](ctx, cfg.Redis)
	case config.BackendMongo:
		return NewMongoLog[T](ctx, cfg.Mongo)
	case config.BackendPostgres:
		return NewPostgresLog[T](ctx, cfg.Postgres, kind)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

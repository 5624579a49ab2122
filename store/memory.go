package store

import (
	"context"
	"sync"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
)

// MemoryLog keeps records in process memory.
type MemoryLog[T any] struct {
	mu      sync.RWMutex
	records []T
	closed  bool
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog[T any]() *MemoryLog[T] {
	return &MemoryLog[T]{}
}

// Append adds rec to the log.
func (l *MemoryLog[T]) Append(_ context.Context, rec T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errorskg.ErrStoreClosed
	}
	l.records = append(l.records, rec)
	return nil
}

// ReadAll returns a copy of the records.
func (l *MemoryLog[T]) ReadAll(context.Context) ([]T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, errorskg.ErrStoreClosed
	}
	return append([]T(nil), l.records...), nil
}

// Rewrite replaces the records.
func (l *MemoryLog[T]) Rewrite(_ context.Context, recs []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errorskg.ErrStoreClosed
	}
	l.records = append([]T(nil), recs...)
	return nil
}

// Close marks the log closed.
func (l *MemoryLog[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

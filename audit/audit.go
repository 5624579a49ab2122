// Package audit records diagnostic events for later review.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/store"
)

// EventDiagnosis is emitted once per diagnosed tool failure.
const EventDiagnosis = "diagnostic_reflection"

// Event is one audit record.
type Event struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	Timestamp      time.Time           `json:"timestamp"`
	ConversationID string              `json:"conversationId,omitempty"`
	TurnID         string              `json:"turnId,omitempty"`
	Iteration      int                 `json:"iteration"`
	FailedTool     string              `json:"failedTool"`
	ErrorMessage   string              `json:"errorMessage,omitempty"`
	Diagnosis      *recovery.Diagnosis `json:"diagnosis,omitempty"`
}

// Sink receives audit events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Stamp fills the id and timestamp when absent.
func Stamp(e Event) Event {
	if e.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			e.ID = id.String()
		} else {
			e.ID = uuid.NewString()
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging sink. A nil logger uses the audit component
// logger.
func NewLogSink(l *slog.Logger) *LogSink {
	if l == nil {
		l = logging.WithComponent("audit")
	}
	return &LogSink{logger: l}
}

// Emit implements Sink.
func (s *LogSink) Emit(ctx context.Context, e Event) error {
	attrs := []any{
		"event_id", e.ID,
		"type", e.Type,
		"conversation_id", e.ConversationID,
		"turn_id", e.TurnID,
		"iteration", e.Iteration,
		"failed_tool", e.FailedTool,
	}
	if e.Diagnosis != nil {
		attrs = append(attrs,
			"root_cause", e.Diagnosis.RootCause.Category,
			"root_cause_confidence", e.Diagnosis.RootCause.Confidence,
		)
	}
	s.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}

// StoreSink appends events to a record log.
type StoreSink struct {
	log store.Log[Event]
}

// NewStoreSink wraps log.
func NewStoreSink(log store.Log[Event]) *StoreSink {
	return &StoreSink{log: log}
}

// Emit implements Sink.
func (s *StoreSink) Emit(ctx context.Context, e Event) error {
	return s.log.Append(ctx, e)
}

// Close closes the underlying log.
func (s *StoreSink) Close() error {
	return s.log.Close()
}

type multi []Sink

// Multi fans events out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

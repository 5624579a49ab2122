package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ai-autopilot/middleware"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
)

// CallLogger logs every reasoning call with its latency and outcome.
type CallLogger struct {
	logger *slog.Logger
}

// NewCallLogger creates a logging middleware. A nil logger uses the shared
// component logger.
func NewCallLogger(l *slog.Logger) *CallLogger {
	if l == nil {
		l = logging.WithComponent("reasoning")
	}
	return &CallLogger{logger: l}
}

// Name returns the middleware name
func (m *CallLogger) Name() string {
	return "CallLogger"
}

// Execute logs the request and its result
func (m *CallLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	op := ""
	if ctx.Request != nil {
		op = ctx.Request.Operation
	}
	start := time.Now()
	m.logger.Debug("reasoning call started", "operation", op)

	err := next(ctx)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		m.logger.Warn("reasoning call failed", "operation", op, "duration_ms", elapsed, "error", err)
		return err
	}

	attrs := []any{"operation", op, "duration_ms", elapsed}
	if ctx.Response != nil {
		attrs = append(attrs,
			"model", ctx.Response.Model,
			"input_tokens", ctx.Response.InputTokens,
			"output_tokens", ctx.Response.OutputTokens,
			"response_chars", len(ctx.Response.Text),
		)
	}
	m.logger.Info("reasoning call completed", attrs...)
	return nil
}

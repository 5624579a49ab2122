package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweetpotato0/ai-autopilot/middleware"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

func TestCallLoggerLogsSuccess(t *testing.T) {
	var buf bytes.Buffer
	l := NewCallLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := &middleware.Context{Request: &reasoning.Request{Operation: "plan", User: "x"}}
	err := l.Execute(ctx, func(c *middleware.Context) error {
		c.Response = &reasoning.Response{Text: "{}", Model: "m"}
		return nil
	})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "reasoning call completed")
	assert.Contains(t, buf.String(), "operation=plan")
	assert.Contains(t, buf.String(), "model=m")
}

func TestCallLoggerLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	l := NewCallLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	boom := errors.New("boom")
	err := l.Execute(&middleware.Context{}, func(c *middleware.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "reasoning call failed")
}

func TestNewCallLoggerDefaultsLogger(t *testing.T) {
	assert.NotNil(t, NewCallLogger(nil).logger)
	assert.Equal(t, "CallLogger", NewCallLogger(nil).Name())
}

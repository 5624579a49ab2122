package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Disable: true})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartAndEndWithoutProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "planner", "generate")
	require.NotNil(t, ctx)
	End(span, errors.New("boom"))
	End(nil, nil)
}

func TestStdoutExporterWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		Exporter: ExporterStdout,
		Output:   &buf,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	_, span := Start(context.Background(), "memory", "search_similar")
	End(span, nil)
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "memory.search_similar")
}

func TestInitRejectsBadExporter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := Init(context.Background(), Config{Exporter: "zipkin", Logger: logger})
	assert.ErrorContains(t, err, "unknown exporter")

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	_, err = Init(context.Background(), Config{Exporter: ExporterOTLP, Logger: logger})
	assert.ErrorContains(t, err, "needs an endpoint")
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)

	l.Debug("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "ai-autopilot", rec["service"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: "text", Output: &buf})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestNewFansOutToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "autopilot.log")
	l, err := New(Options{Output: &buf, File: path})
	require.NoError(t, err)

	l.Info("both sinks")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "both sinks"))
	assert.Contains(t, buf.String(), "both sinks")
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	before := Logger()
	SetLogger(nil)
	assert.Same(t, before, Logger())
}

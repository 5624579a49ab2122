package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/store"
)

func sampleEvent() Event {
	return Stamp(Event{
		Type:           EventDiagnosis,
		ConversationID: "conv-1",
		TurnID:         "turn-3",
		Iteration:      4,
		FailedTool:     "run_bash",
		Diagnosis: &recovery.Diagnosis{
			RootCause: recovery.RootCause{Category: recovery.CommandNotFound, Confidence: 0.9},
		},
	})
}

func TestStamp(t *testing.T) {
	e := sampleEvent()
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	kept := Stamp(Event{ID: "fixed"})
	assert.Equal(t, "fixed", kept.ID)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sink.Emit(context.Background(), sampleEvent()))
	out := buf.String()
	assert.Contains(t, out, "conversation_id=conv-1")
	assert.Contains(t, out, "failed_tool=run_bash")
	assert.Contains(t, out, "root_cause=COMMAND_NOT_FOUND")
}

func TestStoreSinkPersistsEvents(t *testing.T) {
	ctx := context.Background()
	log := store.NewJSONLLog[Event](filepath.Join(t.TempDir(), "audit.jsonl"))
	sink := NewStoreSink(log)

	e := sampleEvent()
	require.NoError(t, sink.Emit(ctx, e))

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, recovery.CommandNotFound, events[0].Diagnosis.RootCause.Category)
	assert.NoError(t, sink.Close())
}

func TestMultiJoinsErrors(t *testing.T) {
	var got []string
	ok := SinkFunc(func(ctx context.Context, e Event) error {
		got = append(got, e.TurnID)
		return nil
	})
	boom := errors.New("boom")
	failing := SinkFunc(func(context.Context, Event) error { return boom })

	err := Multi(ok, nil, failing, ok).Emit(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"turn-3", "turn-3"}, got)
}

package outcome

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/store"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	log := store.NewJSONLLog[Record](filepath.Join(t.TempDir(), "outcomes.jsonl"))
	return NewTracker(log, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func ptr(f float64) *float64 { return &f }

func TestInstallRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	rec := &Record{TaskCategory: "install", Outcome: Success, OverallScore: 0.9}
	require.NoError(t, tr.RecordOutcome(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	got := tr.QueryOutcomes(ctx, Filter{TaskCategory: "install"})
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.InDelta(t, 0.9, got[0].OverallScore, 1e-9)

	stats := tr.Stats(ctx, "install")
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestRecordOutcomeRejectsInvalid(t *testing.T) {
	tr := newTracker(t)
	assert.ErrorIs(t, tr.RecordOutcome(context.Background(), nil), errorskg.ErrInvalidInput)
	assert.ErrorIs(t, tr.RecordOutcome(context.Background(), &Record{Outcome: "maybe"}), errorskg.ErrInvalidInput)
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*Record{
		{TaskCategory: "build", AlternativeName: "make", Outcome: Success, OverallScore: 0.8, ActualIterations: 2, SessionID: "s1", Timestamp: base},
		{TaskCategory: "build", AlternativeName: "bazel", Outcome: Failure, OverallScore: 0.2, ActualIterations: 5, SessionID: "s1", Timestamp: base.Add(time.Hour)},
		{TaskCategory: "build", AlternativeName: "make", Outcome: Partial, OverallScore: 0.5, ActualIterations: 3, SessionID: "s2", Timestamp: base.Add(2 * time.Hour)},
		{TaskCategory: "test", AlternativeName: "go test", Outcome: Success, OverallScore: 0, ActualIterations: 1, SessionID: "s2", Timestamp: base.Add(3 * time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, tr.RecordOutcome(ctx, r))
	}

	assert.Len(t, tr.QueryOutcomes(ctx, Filter{}), 4)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{TaskCategory: "build"}), 3)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{Outcome: Success}), 2)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{MinScore: ptr(0.5)}), 2)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{MaxScore: ptr(0)}), 1)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{SessionID: "s2"}), 2)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{AlternativeName: "make"}), 2)
	assert.Len(t, tr.QueryOutcomes(ctx, Filter{Since: base.Add(90 * time.Minute)}), 2)

	latest := tr.QueryOutcomes(ctx, Filter{TaskCategory: "build", Limit: 1})
	require.Len(t, latest, 1)
	assert.Equal(t, Partial, latest[0].Outcome)

	stats := tr.Stats(ctx, "build")
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Partials)
	assert.InDelta(t, 1.0/3.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, stats.AvgScore, 1e-9)
	assert.InDelta(t, 10.0/3.0, stats.AvgIterations, 1e-9)

	assert.Equal(t, 4, tr.Stats(ctx, "").Count)
}

func TestAlternativeSuccessRates(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)
	for _, r := range []*Record{
		{TaskCategory: "install", AlternativeName: "apt", Outcome: Success},
		{TaskCategory: "install", AlternativeName: "apt", Outcome: Failure},
		{TaskCategory: "install", AlternativeName: "brew", Outcome: Success},
		{TaskCategory: "install", Outcome: Success},
		{TaskCategory: "build", AlternativeName: "make", Outcome: Success},
	} {
		require.NoError(t, tr.RecordOutcome(ctx, r))
	}

	rates := tr.AlternativeSuccessRates(ctx, "install")
	require.Len(t, rates, 2)
	assert.Equal(t, "brew", rates[0].AlternativeName)
	assert.Equal(t, 1.0, rates[0].SuccessRate)
	assert.Equal(t, "apt", rates[1].AlternativeName)
	assert.Equal(t, 2, rates[1].Attempts)
	assert.Equal(t, 0.5, rates[1].SuccessRate)
}

func TestUnreadableStoreIsEmpty(t *testing.T) {
	log := store.NewMemoryLog[Record]()
	tr := NewTracker(log, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, tr.Close())

	assert.Empty(t, tr.QueryOutcomes(context.Background(), Filter{}))
	assert.Zero(t, tr.Stats(context.Background(), "").Count)
	assert.Error(t, tr.RecordOutcome(context.Background(), &Record{Outcome: Success}))
}

func TestCategorizeTask(t *testing.T) {
	cases := map[string]string{
		"list files":                   CategoryQuery,
		"npm install":                  CategoryInstall,
		"Set up the dev environment":   CategoryInstall,
		"run the unit tests":           CategoryTest,
		"compile the project":          CategoryBuild,
		"deploy to staging":            CategoryDeploy,
		"fix the failing lint":         CategoryDebug,
		"fetch the release notes":      CategoryDeploy,
		"create a config file":         CategoryModify,
		"think about the architecture": CategoryGeneral,
	}
	for text, want := range cases {
		assert.Equal(t, want, CategorizeTask(text), text)
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/memory"
	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/reflection"
	"github.com/sweetpotato0/ai-autopilot/store"
)

func TestRender(t *testing.T) {
	v := reflection.ToolPlan{Tool: "run_bash", Purpose: "list"}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", v))
	assert.JSONEq(t, `{"tool": "run_bash", "purpose": "list"}`, buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", v))
	assert.Contains(t, buf.String(), "tool: run_bash")
	assert.Contains(t, buf.String(), "purpose: list")

	assert.Error(t, render(&buf, "xml", v))
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"state": {"task": "build it", "iteration": 2}, "guidance": {"learnings": "use make"}}`), 0o644))

	var in reflectInput
	require.NoError(t, readInput(path, &in))
	assert.Equal(t, "build it", in.State.Task)
	assert.Equal(t, 2, in.State.Iteration)
	assert.Equal(t, "use make", in.Guidance.Learnings)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	assert.Error(t, readInput(path, &in))
}

func TestQueryFilter(t *testing.T) {
	queryFlags.category = "install"
	queryFlags.kind = "SUCCESS"
	queryFlags.minScore, queryFlags.maxScore = 0, 1
	queryFlags.since = time.Hour
	t.Cleanup(func() { queryFlags.category, queryFlags.kind, queryFlags.since = "", "", 0 })

	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	f := queryFilter(now)
	assert.Equal(t, "install", f.TaskCategory)
	assert.Equal(t, "success", string(f.Outcome))
	assert.Equal(t, now.Add(-time.Hour), f.Since)
	require.NotNil(t, f.MinScore)
	assert.Equal(t, 0.0, *f.MinScore)
}

func TestEnrichGuidance(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore(store.NewMemoryLog[memory.Episode]())
	require.NoError(t, mem.Initialize(ctx))
	_, err := mem.RecordEpisode(ctx, memory.SessionResult{
		Task:       "clone the widget repository and install dependencies",
		Success:    true,
		Iterations: 4,
		Strategy:   "clone_then_install",
		ErrorRecoveries: []memory.ErrorRecovery{{
			ErrorCategory:       recovery.CommandNotFound,
			StrategyName:        "download_archive",
			RecoverySucceeded:   true,
			IterationsToSuccess: 2,
		}},
	})
	require.NoError(t, err)

	g := reflection.Guidance{}
	enrichGuidance(ctx, mem, "clone the widget repository", &g)
	assert.Contains(t, g.EpisodeSummaries, "clone the widget repository and install dependencies")
	assert.Contains(t, g.EpisodeSummaries, "succeeded in 4 iterations")
	assert.Contains(t, g.Recommendations, "COMMAND_NOT_FOUND")
	assert.Contains(t, g.Recommendations, "download_archive")

	kept := reflection.Guidance{EpisodeSummaries: "mine", Recommendations: "also mine"}
	enrichGuidance(ctx, mem, "clone", &kept)
	assert.Equal(t, "mine", kept.EpisodeSummaries)
	assert.Equal(t, "also mine", kept.Recommendations)
}

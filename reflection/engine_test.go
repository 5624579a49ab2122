package reflection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/reasoning/reasoningtest"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(client reasoning.Client, opts ...Option) *Engine {
	base := []Option{
		WithLogger(discard()),
		WithConfig(config.ReflectionConfig{Timeout: time.Second, MaxTokens: 500, Temperature: 0.3, PromptTokenBudget: 6000}),
	}
	return NewEngine(client, append(base, opts...)...)
}

type counterFunc func(string) int

func (f counterFunc) CountTokens(text string) int { return f(text) }

func TestReflectClampsAndCalibrates(t *testing.T) {
	client := reasoningtest.New(`{"assessment": "Continue", "progressPercent": 140, "confidence": 1.4,
		"nextAction": "run the tests", "reasoning": "code written", "toolPlan": {"tool": "bash", "purpose": "go test"}}`)
	e := newTestEngine(client)

	var gotType TaskType
	var gotTool string
	var gotRaw float64
	cal := CalibratorFunc(func(raw float64, tt TaskType, name string) float64 {
		gotRaw, gotType, gotTool = raw, tt, name
		return 0.55
	})

	res := e.Reflect(context.Background(), State{Task: "create a parser and write tests for it", Iteration: 2, ProgressPercent: 30},
		tool.DefaultRegistry(), cal, Guidance{})

	assert.False(t, res.Degraded)
	assert.Equal(t, Continue, res.Assessment)
	assert.Equal(t, 100.0, res.ProgressPercent)
	assert.Equal(t, 1.0, res.ConfidenceRaw)
	assert.Equal(t, 0.55, res.ConfidenceCalibrated)
	require.NotNil(t, res.ToolPlan)
	assert.Equal(t, tool.RunBash, res.ToolPlan.Tool)
	assert.Equal(t, TaskCreateAndTest, res.TaskType)

	assert.Equal(t, 1.0, gotRaw)
	assert.Equal(t, TaskCreateAndTest, gotType)
	assert.Equal(t, tool.RunBash, gotTool)

	req := client.Last()
	require.NotNil(t, req)
	assert.Equal(t, "reflect", req.Operation)
	assert.Equal(t, 500, req.MaxTokens)
	require.NotNil(t, req.Schema)
	assert.Contains(t, req.User, "read_file")
}

func TestReflectWithoutCalibratorKeepsRaw(t *testing.T) {
	e := newTestEngine(reasoningtest.New(`{"assessment": "complete", "progressPercent": 100, "confidence": 0.9, "nextAction": "", "reasoning": "done"}`))

	res := e.Reflect(context.Background(), State{Task: "list files"}, nil, nil, Guidance{})

	assert.Equal(t, Complete, res.Assessment)
	assert.Equal(t, 0.9, res.ConfidenceRaw)
	assert.Equal(t, 0.9, res.ConfidenceCalibrated)
	assert.Nil(t, res.ToolPlan)
	assert.Empty(t, res.NextAction)
}

func TestReflectDegradedPaths(t *testing.T) {
	tests := []struct {
		name   string
		client *reasoningtest.Client
		reason string
	}{
		{"call error", reasoningtest.Failing(), "scripted"},
		{"malformed output", reasoningtest.New("I think we are done"), ""},
		{"unknown assessment", reasoningtest.New(`{"assessment": "finished", "progressPercent": 90, "confidence": 0.8, "nextAction": "x", "reasoning": "y"}`), "finished"},
		{"deadline", reasoningtest.Slow(300*time.Millisecond, `{"assessment": "complete"}`), "deadline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.client, WithConfig(config.ReflectionConfig{Timeout: 30 * time.Millisecond}))
			st := State{Task: "deploy the service", Iteration: 4, ProgressPercent: 42}

			optimistic := CalibratorFunc(func(float64, TaskType, string) float64 { return 0.9 })

			res := e.Reflect(context.Background(), st, tool.DefaultRegistry(), optimistic, Guidance{})

			assert.True(t, res.Degraded)
			assert.Equal(t, Continue, res.Assessment)
			assert.Equal(t, 42.0, res.ProgressPercent)
			assert.Equal(t, 0.3, res.ConfidenceRaw)
			assert.Equal(t, 0.3, res.ConfidenceCalibrated)
			assert.Contains(t, res.NextAction, "deploy the service")
			assert.NotEmpty(t, res.DegradedReason)
			if tt.reason != "" {
				assert.Contains(t, res.DegradedReason, tt.reason)
			}
		})
	}
}

func TestReflectNilClientDegrades(t *testing.T) {
	e := NewEngine(nil, WithLogger(discard()))
	res := e.Reflect(context.Background(), State{Task: "anything", ProgressPercent: 10}, nil, nil, Guidance{})
	assert.True(t, res.Degraded)
	assert.Equal(t, 10.0, res.ProgressPercent)
}

func TestReflectPromptHistoryWindow(t *testing.T) {
	client := reasoningtest.New(`{"assessment": "continue", "progressPercent": 50, "confidence": 0.6, "nextAction": "go on", "reasoning": "ok"}`)
	e := newTestEngine(client)

	var history []Iteration
	for i := 1; i <= 12; i++ {
		history = append(history, Iteration{
			Number:    i,
			Action:    fmt.Sprintf("step %d", i),
			Tool:      fmt.Sprintf("tool_%d", i),
			Reasoning: strings.Repeat("x", 400),
			Success:   i%2 == 0,
		})
	}
	e.Reflect(context.Background(), State{Task: "do things", Iteration: 13, History: history}, nil, nil, Guidance{})

	user := client.Last().User
	assert.NotContains(t, user, "#1 [")
	assert.NotContains(t, user, "#2 [")
	assert.Contains(t, user, "#3 [failed] step 3")
	assert.Contains(t, user, "#12 [ok] step 12")
	assert.NotContains(t, user, strings.Repeat("x", 301))
	assert.NotContains(t, user, "Warnings")
}

func TestWarnings(t *testing.T) {
	t.Run("low diversity", func(t *testing.T) {
		h := []Iteration{
			{Action: "a", Tool: "run_bash"},
			{Action: "b", Tool: "run_bash"},
			{Action: "c", Tool: "read_file"},
			{Action: "d", Tool: "run_bash"},
			{Action: "e", Tool: "run_bash"},
		}
		w := warnings(h)
		require.Len(t, w, 1)
		assert.Contains(t, w[0], "Low tool diversity: run_bash")
	})
	t.Run("repetition", func(t *testing.T) {
		h := []Iteration{
			{Action: "Run  the tests", Tool: "run_bash"},
			{Action: "run the tests", Tool: "read_file"},
			{Action: "run the TESTS", Tool: "search_files"},
		}
		w := warnings(h)
		require.Len(t, w, 1)
		assert.Contains(t, w[0], "Repetition")
	})
	t.Run("varied", func(t *testing.T) {
		h := []Iteration{{Action: "a", Tool: "x"}, {Action: "b", Tool: "y"}, {Action: "a", Tool: "x"}}
		assert.Empty(t, warnings(h))
	})
}

func TestReflectDropsGuidanceLastFirst(t *testing.T) {
	client := reasoningtest.New(`{"assessment": "continue", "progressPercent": 10, "confidence": 0.5, "nextAction": "n", "reasoning": "r"}`)
	counter := counterFunc(func(text string) int {
		if strings.Contains(text, "EPISODES-BLOCK") || strings.Contains(text, "RECS-BLOCK") {
			return 10000
		}
		return 10
	})
	e := newTestEngine(client, WithTokenCounter(counter))

	e.Reflect(context.Background(), State{Task: "simple job"}, nil, nil, Guidance{
		Learnings:        "LEARNINGS-BLOCK",
		Preferences:      "PREFS-BLOCK",
		EpisodeSummaries: "EPISODES-BLOCK",
		Recommendations:  "RECS-BLOCK",
	})

	user := client.Last().User
	assert.Contains(t, user, "LEARNINGS-BLOCK")
	assert.Contains(t, user, "PREFS-BLOCK")
	assert.NotContains(t, user, "EPISODES-BLOCK")
	assert.NotContains(t, user, "RECS-BLOCK")
}

func TestReflectOverBudgetWithoutGuidanceStillCalls(t *testing.T) {
	client := reasoningtest.New(`{"assessment": "continue", "progressPercent": 10, "confidence": 0.5, "nextAction": "n", "reasoning": "r"}`)
	e := newTestEngine(client, WithTokenCounter(counterFunc(func(string) int { return 1 << 20 })))

	res := e.Reflect(context.Background(), State{Task: "simple job"}, nil, nil, Guidance{Learnings: "L", Recommendations: "R"})

	assert.False(t, res.Degraded)
	user := client.Last().User
	assert.NotContains(t, user, "Learnings from past sessions")
	assert.NotContains(t, user, "Recommendations")
}

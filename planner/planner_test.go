package planner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/reasoning/reasoningtest"
	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

func newTestPlanner(client *reasoningtest.Client, mutate func(*Options)) *Planner {
	opts := DefaultOptions()
	opts.Timeout = time.Second
	if mutate != nil {
		mutate(&opts)
	}
	return New(client, WithOptions(opts), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

const reasonedJSON = `{
  "approach": "inspect then fix",
  "prerequisites": ["repository checked out"],
  "steps": [
    {"description": "look around", "tool": "bash", "args": {"command": "ls", "timeout": "30"}, "expectedOutcome": "listing", "confidence": 0.8},
    {"description": "read it", "tool": "read_file", "args": {"path": "go.mod"}, "expectedOutcome": "contents"},
    {"description": "magic", "tool": "frobnicate", "args": {}, "expectedOutcome": "??", "confidence": 0.9}
  ],
  "verification": {"checkCommand": "go vet ./...", "successCriteria": "no output"},
  "alternatives": [{"approach": "ask the user", "whenToUse": "if stuck", "confidence": 0.4}]
}`

func TestGenerateInstructionsReasonedPlan(t *testing.T) {
	client := reasoningtest.New("```json\n" + reasonedJSON + "\n```")
	p := newTestPlanner(client, nil)

	plan := p.GenerateInstructions(context.Background(), "inspect the module", Context{
		Goal:           "fix the build",
		Tools:          tool.DefaultRegistry(),
		RecentFailures: []Failure{{Tool: "run_bash", Error: "go: command not found", RootCause: recovery.CommandNotFound}},
	})

	assert.False(t, plan.FallbackUsed)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "inspect the module", plan.TaskAction)
	require.Len(t, plan.Steps, 3)
	for i, s := range plan.Steps {
		assert.Equal(t, i+1, s.StepNumber)
	}
	assert.Equal(t, tool.RunBash, plan.Steps[0].Tool)
	assert.Equal(t, 30.0, plan.Steps[0].Args["timeout"])
	assert.Equal(t, 0.7, plan.Steps[1].Confidence)
	assert.Equal(t, "frobnicate", plan.Steps[2].Tool)
	assert.Equal(t, 0.3, plan.Steps[2].Confidence)
	assert.InDelta(t, (0.8+0.7+0.3)/3, plan.OverallConfidence, 1e-9)
	require.NotNil(t, plan.Verification)
	assert.Equal(t, "go vet ./...", plan.Verification.CheckCommand)

	req := client.Last()
	require.NotNil(t, req)
	assert.Equal(t, "plan", req.Operation)
	assert.NotNil(t, req.Schema)
	assert.Contains(t, req.User, "- read_file(path: string): Read a text file")
	assert.Contains(t, req.User, "root cause: COMMAND_NOT_FOUND")
}

func TestGenerateInstructionsTimeoutFallsBack(t *testing.T) {
	client := reasoningtest.Slow(2*time.Second, reasonedJSON)
	p := newTestPlanner(client, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	start := time.Now()
	plan := p.GenerateInstructions(context.Background(), "list files", Context{})

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, plan.FallbackUsed)
	assert.Contains(t, plan.FallbackReason, "deadline")
	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, tool.ReadDir, plan.Steps[0].Tool)
	assert.Equal(t, 1, plan.Steps[0].StepNumber)
	assert.InDelta(t, 0.9, plan.OverallConfidence, 1e-9)
}

func TestGenerateInstructionsFallsBackOnBadOutput(t *testing.T) {
	for name, client := range map[string]*reasoningtest.Client{
		"error":     reasoningtest.Failing(),
		"malformed": reasoningtest.New("not json at all"),
		"no steps":  reasoningtest.New(`{"approach":"x","steps":[]}`),
	} {
		t.Run(name, func(t *testing.T) {
			plan := newTestPlanner(client, nil).GenerateInstructions(context.Background(), "git status", Context{})
			assert.True(t, plan.FallbackUsed)
			require.Len(t, plan.Steps, 1)
			assert.Equal(t, "git status", plan.Steps[0].Args["command"])
			assert.NotNil(t, plan.Prerequisites)
			assert.NotNil(t, plan.Alternatives)
		})
	}
}

func TestGenerateInstructionsNilClient(t *testing.T) {
	plan := New(nil).GenerateInstructions(context.Background(), "ponder", Context{})
	assert.True(t, plan.FallbackUsed)
	assert.InDelta(t, genericConfidence, plan.OverallConfidence, 1e-9)
}

const weakJSON = `{"approach":"guess","prerequisites":["a shell"],"steps":[{"description":"guess","tool":"run_bash","args":{"command":"ls"},"expectedOutcome":"?","errorHandling":"","confidence":0.1}],"verification":{"checkCommand":"ls -la","successCriteria":"files listed"},"alternatives":[{"approach":"find .","whenToUse":"ls missing"}]}`

func TestLowConfidencePlanReplaced(t *testing.T) {
	plan := newTestPlanner(reasoningtest.New(weakJSON), nil).
		GenerateInstructions(context.Background(), "list files", Context{})
	assert.True(t, plan.FallbackUsed)
	assert.Equal(t, tool.ReadDir, plan.Steps[0].Tool)
	assert.Contains(t, plan.FallbackReason, "below")
	assert.Nil(t, plan.Verification)
	assert.Empty(t, plan.Alternatives)
	assert.Empty(t, plan.Prerequisites)

	kept := newTestPlanner(reasoningtest.New(weakJSON), func(o *Options) { o.DisableFallback = true }).
		GenerateInstructions(context.Background(), "list files", Context{})
	assert.False(t, kept.FallbackUsed)
	assert.InDelta(t, 0.1, kept.OverallConfidence, 1e-9)
	assert.NotNil(t, kept.Verification)
	assert.Equal(t, []string{"a shell"}, kept.Prerequisites)
}

func TestUnresolvedHeuristicToolIsCapped(t *testing.T) {
	catalog := tool.NewRegistry(&tool.Tool{Name: "run_bash"})
	plan := New(nil).GenerateInstructions(context.Background(), "list files", Context{Tools: catalog})
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, tool.ReadDir, plan.Steps[0].Tool)
	assert.LessOrEqual(t, plan.Steps[0].Confidence, 0.3)
}

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

func TestHeuristicFamilies(t *testing.T) {
	tests := []struct {
		action     string
		family     string
		tool       string
		arg        string
		want       string
		confidence float64
	}{
		{"clone https://github.com/foo/bar.git", "gh_clone", tool.RunBash, "command", "gh repo clone foo/bar", 0.85},
		{"clone https://gitlab.com/group/proj.git", "gh_clone", tool.RunBash, "command", "git clone https://gitlab.com/group/proj.git", 0.85},
		{"list files in src", "list", tool.ReadDir, "path", "src", 0.9},
		{"list files in the current directory", "list", tool.ReadDir, "path", ".", 0.9},
		{"write hello to notes.txt", "write", tool.WriteFile, "path", "notes.txt", 0.8},
		{"read config/app.yaml", "read", tool.ReadFile, "path", "config/app.yaml", 0.85},
		{"search for TODO in src", "search", tool.SearchFiles, "pattern", "TODO", 0.8},
		{"git status", "git_status", tool.RunBash, "command", "git status", 0.9},
		{"show the git diff", "git_status", tool.RunBash, "command", "git diff", 0.9},
		{"npm install express", "install", tool.RunBash, "command", "npm install express", 0.8},
		{"run the tests", "test", tool.RunBash, "command", "npm test", 0.8},
		{"run go tests", "test", tool.RunBash, "command", "go test ./...", 0.8},
		{"build the project", "build", tool.RunBash, "command", "npm run build", 0.8},
		{"start the dev server", "dev_server", tool.RunBash, "command", "nohup npm run dev > dev-server.log 2>&1 &", 0.7},
		{"show the application logs", "logs", tool.RunBash, "command", "tail -n 100 *.log", 0.75},
		{"list running docker containers", "containers", tool.RunBash, "command", "docker ps", 0.75},
		{"move a.txt to b.txt", "file_ops", tool.RunBash, "command", "mv a.txt b.txt", 0.7},
		{"count lines in main.go", "count", tool.RunBash, "command", "wc -l main.go", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			_, steps, family := heuristicPlan(tt.action)
			assert.Equal(t, tt.family, family)
			require.NotEmpty(t, steps)
			assert.Equal(t, tt.tool, steps[0].Tool)
			assert.Equal(t, tt.want, steps[0].Args[tt.arg])
			assert.Equal(t, tt.confidence, steps[0].Confidence)
		})
	}
}

func TestHeuristicCloneThenInstall(t *testing.T) {
	_, steps, family := heuristicPlan("clone sweetpotato0/ai-autopilot and install dependencies")
	assert.Equal(t, "clone_and_install", family)
	require.Len(t, steps, 2)
	assert.Equal(t, "gh repo clone sweetpotato0/ai-autopilot", steps[0].Args["command"])
	assert.Equal(t, "cd ai-autopilot && npm install", steps[1].Args["command"])
	for _, s := range steps {
		assert.Equal(t, 0.75, s.Confidence)
	}
}

func TestHeuristicGeneric(t *testing.T) {
	_, steps, family := heuristicPlan("ponder the meaning of life")
	assert.Equal(t, "generic", family)
	require.Len(t, steps, 1)
	assert.Equal(t, genericConfidence, steps[0].Confidence)
	assert.Equal(t, tool.RunBash, steps[0].Tool)
}

func TestDetectCommand(t *testing.T) {
	assert.Equal(t, "pnpm add zod", detectCommand("pnpm add zod and then run the tests", "install", "npm install"))
	assert.Equal(t, "pip install -r requirements.txt", detectCommand("install the python deps", "install", "npm install"))
	assert.Equal(t, "npm install", detectCommand("install deps", "install", "npm install"))
	assert.Equal(t, "cargo test", detectCommand("run rust tests", "test", "npm test"))
}

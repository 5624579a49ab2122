package planner

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

// family is one recognisable kind of action with a canned plan.
type family struct {
	name       string
	pattern    *regexp.Regexp
	confidence float64
	approach   string
	steps      func(action string) []Step
}

var (
	repoRefPattern   = regexp.MustCompile(`(?i)(?:https?://github\.com/|git@github\.com:)?\b([\w.-]+)/([\w.-]+?)(?:\.git)?(?:\s|$|[,;])`)
	gitURLPattern    = regexp.MustCompile(`(?i)\b((?:https?|git|ssh)://\S+|git@\S+)`)
	filePathPattern  = regexp.MustCompile(`(?:\.{0,2}/)?[\w.-]+(?:/[\w.-]+)*\.[A-Za-z0-9]{1,8}\b`)
	quotedPattern    = regexp.MustCompile("[\"'`]([^\"'`]+)[\"'`]")
	shellCmdPattern  = regexp.MustCompile(`(?i)\b((npm|pnpm|yarn|pip3?|go|cargo|bundle|composer|poetry|make)\s+(install|add|get|i|test|run\s+\S+|build)\b[^,;]*)`)
	conjunction      = regexp.MustCompile(`(?i)\s+(?:and|then|&&)\s+`)
	searchForPattern = regexp.MustCompile(`(?i)\bfor\s+(\S+)`)
	searchVerb       = regexp.MustCompile(`(?i)\b(?:grep|search|find)\s+(\S+)`)
	dirPathPattern   = regexp.MustCompile(`(?i)\b(?:in|of|under|inside|from)\s+((?:\.{0,2}/)?[\w.-]+(?:/[\w.-]+)*/?)`)
)

// families are checked in order; clone-then-install precedes the plain
// clone and install families so the compound action is not split.
var families = []family{
	{
		name:       "clone_and_install",
		pattern:    regexp.MustCompile(`(?i)\bclone\b.*\b(?:and|then)\b.*\binstall\b`),
		confidence: 0.75,
		approach:   "Clone the repository, then install its dependencies",
		steps: func(action string) []Step {
			clone := cloneStep(action)
			dir := cloneDir(action)
			install := detectInstallCommand(action)
			return []Step{clone, bash(
				"Install dependencies inside the cloned repository",
				fmt.Sprintf("cd %s && %s", dir, install),
				"Dependencies installed without errors",
			)}
		},
	},
	{
		name:       "gh_clone",
		pattern:    regexp.MustCompile(`(?i)\bclone\b`),
		confidence: 0.85,
		approach:   "Clone the repository with the GitHub CLI",
		steps: func(action string) []Step {
			return []Step{cloneStep(action)}
		},
	},
	{
		name:       "list",
		pattern:    regexp.MustCompile(`(?i)(?:^\s*ls\b|\b(?:list|show)\b.*\b(?:files?|director(?:y|ies)|folders?|contents)\b|\blist files\b)`),
		confidence: 0.9,
		approach:   "List the directory contents",
		steps: func(action string) []Step {
			return []Step{{
				Description:     "List directory contents",
				Tool:            tool.ReadDir,
				Args:            map[string]any{"path": targetDir(action)},
				ExpectedOutcome: "Directory entries are listed",
			}}
		},
	},
	{
		name:       "write",
		pattern:    regexp.MustCompile(`(?i)\b(?:write|create|save)\b.*\b(?:file|to)\b`),
		confidence: 0.8,
		approach:   "Write the requested file",
		steps: func(action string) []Step {
			content := ""
			if m := quotedPattern.FindStringSubmatch(action); m != nil {
				content = m[1]
			}
			return []Step{{
				Description:     "Write the file",
				Tool:            tool.WriteFile,
				Args:            map[string]any{"path": firstPath(action, "output.txt"), "content": content},
				ExpectedOutcome: "File exists with the expected content",
			}}
		},
	},
	{
		name:       "read",
		pattern:    regexp.MustCompile(`(?i)\b(?:read|view|cat|open|show)\b.*` + filePathPattern.String()),
		confidence: 0.85,
		approach:   "Read the file",
		steps: func(action string) []Step {
			return []Step{{
				Description:     "Read the file contents",
				Tool:            tool.ReadFile,
				Args:            map[string]any{"path": firstPath(action, "")},
				ExpectedOutcome: "File contents are returned",
			}}
		},
	},
	{
		name:       "search",
		pattern:    regexp.MustCompile(`(?i)\b(?:search|grep|find)\b`),
		confidence: 0.8,
		approach:   "Search the codebase",
		steps: func(action string) []Step {
			return []Step{{
				Description:     "Search file contents",
				Tool:            tool.SearchFiles,
				Args:            map[string]any{"pattern": searchTerm(action), "path": targetDir(action)},
				ExpectedOutcome: "Matching locations are listed",
			}}
		},
	},
	{
		name:       "git_status",
		pattern:    regexp.MustCompile(`(?i)\bgit\s+(?:status|diff)\b|\b(?:status|diff)\b.*\b(?:repo|repository|changes|working tree)\b`),
		confidence: 0.9,
		approach:   "Inspect the working tree",
		steps: func(action string) []Step {
			cmd := "git status"
			if strings.Contains(strings.ToLower(action), "diff") {
				cmd = "git diff"
			}
			return []Step{bash("Show repository state", cmd, "Working tree state is printed")}
		},
	},
	{
		name:       "install",
		pattern:    regexp.MustCompile(`(?i)\binstall\b|\b(?:npm|pnpm|yarn|pip3?|go|cargo)\s+(?:i|add|get)\b`),
		confidence: 0.8,
		approach:   "Install dependencies with the project package manager",
		steps: func(action string) []Step {
			return []Step{bash("Install dependencies", detectInstallCommand(action), "Dependencies installed without errors")}
		},
	},
	{
		name:       "test",
		pattern:    regexp.MustCompile(`(?i)\btests?\b|\bpytest\b`),
		confidence: 0.8,
		approach:   "Run the test suite",
		steps: func(action string) []Step {
			return []Step{bash("Run the tests", detectCommand(action, "test", "npm test"), "All tests pass")}
		},
	},
	{
		name:       "build",
		pattern:    regexp.MustCompile(`(?i)\b(?:build|compile)\b`),
		confidence: 0.8,
		approach:   "Build the project",
		steps: func(action string) []Step {
			return []Step{bash("Build the project", detectCommand(action, "build", "npm run build"), "Build completes without errors")}
		},
	},
	{
		name:       "dev_server",
		pattern:    regexp.MustCompile(`(?i)\b(?:start|run|launch|serve)\b.*\bserver\b|\bdev server\b`),
		confidence: 0.7,
		approach:   "Start the development server in the background",
		steps: func(action string) []Step {
			return []Step{bash("Start the development server", "nohup npm run dev > dev-server.log 2>&1 &", "Server process is running")}
		},
	},
	{
		name:       "logs",
		pattern:    regexp.MustCompile(`(?i)\blogs?\b|\btail\b`),
		confidence: 0.75,
		approach:   "Show recent log output",
		steps: func(action string) []Step {
			target := firstPath(action, "")
			if target == "" {
				target = "*.log"
			}
			return []Step{bash("Show the latest log lines", "tail -n 100 "+target, "Recent log lines are printed")}
		},
	},
	{
		name:       "containers",
		pattern:    regexp.MustCompile(`(?i)\b(?:docker|containers?|compose|podman)\b`),
		confidence: 0.75,
		approach:   "Manage containers with docker",
		steps: func(action string) []Step {
			lower := strings.ToLower(action)
			switch {
			case strings.Contains(lower, "stop") || strings.Contains(lower, "down"):
				return []Step{bash("Stop the containers", "docker compose down", "Containers are stopped")}
			case strings.Contains(lower, "start") || strings.Contains(lower, " up"):
				return []Step{bash("Start the containers", "docker compose up -d", "Containers are running")}
			}
			return []Step{bash("List running containers", "docker ps", "Container list is printed")}
		},
	},
	{
		name:       "file_ops",
		pattern:    regexp.MustCompile(`(?i)\b(?:move|rename|copy|delete|remove)\b`),
		confidence: 0.7,
		approach:   "Manipulate files with standard shell utilities",
		steps: func(action string) []Step {
			lower := strings.ToLower(action)
			paths := filePathPattern.FindAllString(action, 2)
			switch {
			case strings.Contains(lower, "delete") || strings.Contains(lower, "remove"):
				target := "<path>"
				if len(paths) > 0 {
					target = paths[0]
				}
				return []Step{bash("Delete the file", "rm -f "+shellQuote(target), "File no longer exists")}
			default:
				verb := "mv"
				if strings.Contains(lower, "copy") {
					verb = "cp -r"
				}
				src, dst := "<source>", "<destination>"
				if len(paths) > 0 {
					src = paths[0]
				}
				if len(paths) > 1 {
					dst = paths[1]
				}
				return []Step{bash("Move or copy the file", fmt.Sprintf("%s %s %s", verb, shellQuote(src), shellQuote(dst)), "Destination exists")}
			}
		},
	},
	{
		name:       "count",
		pattern:    regexp.MustCompile(`(?i)\bcount\b|\bhow many\b`),
		confidence: 0.75,
		approach:   "Count with find and wc",
		steps: func(action string) []Step {
			if p := firstPath(action, ""); p != "" {
				return []Step{bash("Count lines in the file", "wc -l "+shellQuote(p), "Line count is printed")}
			}
			return []Step{bash("Count files", fmt.Sprintf("find %s -type f | wc -l", shellQuote(targetDir(action))), "File count is printed")}
		},
	},
}

const genericConfidence = 0.3

// heuristicPlan builds a plan from the first matching family. Actions that
// match nothing get a single low-confidence step.
func heuristicPlan(action string) (approach string, steps []Step, matched string) {
	for _, f := range families {
		if !f.pattern.MatchString(action) {
			continue
		}
		steps := f.steps(action)
		for i := range steps {
			steps[i].Confidence = f.confidence
		}
		return f.approach, steps, f.name
	}
	return "Attempt the action directly", []Step{{
		Description:     "Attempt: " + action,
		Tool:            tool.RunBash,
		Args:            map[string]any{"command": fmt.Sprintf("echo %s", shellQuote("manual step required: "+action))},
		ExpectedOutcome: "Action is acknowledged for manual follow-up",
		ErrorHandling:   "Ask the user how to proceed",
		Confidence:      genericConfidence,
	}}, "generic"
}

func bash(description, command, expected string) Step {
	return Step{
		Description:     description,
		Tool:            tool.RunBash,
		Args:            map[string]any{"command": command},
		ExpectedOutcome: expected,
	}
}

func cloneStep(action string) Step {
	owner, name, url := repoRef(action)
	switch {
	case owner != "":
		repo := owner + "/" + name
		return bash("Clone "+repo, "gh repo clone "+repo, "Repository directory "+name+" exists")
	case url != "":
		return bash("Clone the repository", "git clone "+url, "Repository directory "+name+" exists")
	}
	return bash("Clone the repository", "git clone <repository-url>", "Repository directory exists")
}

func cloneDir(action string) string {
	if _, name, _ := repoRef(action); name != "" {
		return name
	}
	return "."
}

// repoRef extracts a GitHub owner/name pair, or the clone URL and directory
// name for other remotes.
func repoRef(action string) (owner, name, url string) {
	if m := gitURLPattern.FindStringSubmatch(action); m != nil {
		url = strings.TrimRight(m[1], ".,;")
		if !strings.Contains(url, "github.com") {
			return "", strings.TrimSuffix(path.Base(url), ".git"), url
		}
	}
	if m := repoRefPattern.FindStringSubmatch(action + " "); m != nil {
		return m[1], m[2], url
	}
	if url != "" {
		return "", strings.TrimSuffix(path.Base(url), ".git"), url
	}
	return "", "", ""
}

func detectInstallCommand(action string) string {
	return detectCommand(action, "install", "npm install")
}

var ecosystems = []struct {
	pattern *regexp.Regexp
	cmds    map[string]string
}{
	{regexp.MustCompile(`(?i)\b(?:python|pip3?|pytest|requirements\.txt)\b`), map[string]string{"install": "pip install -r requirements.txt", "test": "pytest", "build": "python -m build"}},
	{regexp.MustCompile(`(?i)\b(?:go|golang|go\.mod)\b`), map[string]string{"install": "go mod download", "test": "go test ./...", "build": "go build ./..."}},
	{regexp.MustCompile(`(?i)\b(?:cargo|rust)\b`), map[string]string{"install": "cargo fetch", "test": "cargo test", "build": "cargo build"}},
	{regexp.MustCompile(`(?i)\bmakefile\b`), map[string]string{"install": "make install", "test": "make test", "build": "make"}},
}

// detectCommand returns the package-manager command the action spells out
// for verb, else one guessed from ecosystem keywords, else fallback.
func detectCommand(action, verb, fallback string) string {
	for _, m := range shellCmdPattern.FindAllStringSubmatch(action, -1) {
		if commandVerb(m[3]) == verb {
			return strings.TrimSpace(conjunction.Split(m[1], 2)[0])
		}
	}
	for _, e := range ecosystems {
		if e.pattern.MatchString(action) {
			return e.cmds[verb]
		}
	}
	return fallback
}

func commandVerb(sub string) string {
	sub = strings.ToLower(sub)
	switch {
	case sub == "install" || sub == "add" || sub == "get" || sub == "i":
		return "install"
	case strings.HasSuffix(sub, "test"):
		return "test"
	case strings.HasSuffix(sub, "build"):
		return "build"
	}
	return ""
}

func firstPath(action, fallback string) string {
	for _, p := range filePathPattern.FindAllString(action, -1) {
		if strings.Contains(p, "://") {
			continue
		}
		return p
	}
	return fallback
}

func targetDir(action string) string {
	if m := dirPathPattern.FindStringSubmatch(action); m != nil {
		dir := strings.TrimSuffix(m[1], "/")
		if dir != "" && !isStopWord(dir) {
			return dir
		}
	}
	return "."
}

func isStopWord(s string) bool {
	switch strings.ToLower(s) {
	case "the", "this", "that", "current", "a", "an", "my", "our":
		return true
	}
	return false
}

func searchTerm(action string) string {
	if m := quotedPattern.FindStringSubmatch(action); m != nil {
		return m[1]
	}
	for _, re := range []*regexp.Regexp{searchForPattern, searchVerb} {
		if m := re.FindStringSubmatch(action); m != nil {
			return strings.Trim(m[1], `"'.,`)
		}
	}
	fields := strings.Fields(action)
	return fields[len(fields)-1]
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"$`\\*?;&|<>()") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

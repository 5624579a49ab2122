package recovery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

const (
	defaultTimeoutSeconds = 60
	maxTimeoutSeconds     = 600
	backoffSeconds        = 5
)

// Step is one concrete action of a recovery plan. Steps without a tool are
// questions for the user (see Args["question"]).
type Step struct {
	StepNumber      int            `json:"stepNumber"`
	Description     string         `json:"description"`
	Tool            string         `json:"tool,omitempty"`
	Args            map[string]any `json:"args,omitempty"`
	ExpectedOutcome string         `json:"expectedOutcome,omitempty"`
	WaitSeconds     int            `json:"waitSeconds,omitempty"`
}

var safeCommandName = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)

// Packages whose name differs from the executable they provide.
var commandPackages = map[string]string{
	"rg":      "ripgrep",
	"fd":      "fd-find",
	"python":  "python3",
	"pip":     "python3-pip",
	"pip3":    "python3-pip",
	"node":    "nodejs",
	"npm":     "npm",
	"convert": "imagemagick",
}

// expand turns a strategy's template into numbered steps. It fails when the
// context lacks what the template needs or when a step would reference a
// tool outside the available set.
func expand(s Strategy, rc *Context) ([]Step, error) {
	var (
		steps []Step
		err   error
	)
	p := s.Template.Params

	switch s.Template.Kind {
	case DownloadExtract:
		steps, err = expandDownloadExtract(p, rc)
	case SandboxPath:
		steps, err = expandSandboxPath(p, rc)
	case VerifyParent:
		steps, err = expandVerifyParent(p)
	case AdjustTimeout:
		steps, err = expandAdjustTimeout(rc)
	case FixParamTypes:
		steps, err = expandFixParamTypes(rc)
	case AskUser:
		steps = []Step{{
			Description: p["question"],
			Args:        map[string]any{"question": p["question"]},
		}}
	case InstallCommand:
		steps, err = expandInstallCommand(p)
	case UseAlternativeTool:
		steps, err = expandAlternativeTool(p, rc)
	case RetryBackoff:
		steps, err = expandRetry(rc)
	default:
		err = fmt.Errorf("unknown template kind %q", s.Template.Kind)
	}
	if err != nil {
		return nil, err
	}

	for i := range steps {
		steps[i].StepNumber = i + 1
		if steps[i].Tool != "" && !rc.has(steps[i].Tool) {
			return nil, fmt.Errorf("step %d uses unavailable tool %s", i+1, steps[i].Tool)
		}
	}
	return steps, nil
}

func withCwd(args map[string]any, rc *Context) map[string]any {
	if rc.WorkingDir != "" {
		args["cwd"] = rc.WorkingDir
	}
	return args
}

func expandDownloadExtract(p map[string]string, rc *Context) ([]Step, error) {
	owner, repo := p["owner"], p["repo"]
	if !safeCommandName.MatchString(owner) || !safeCommandName.MatchString(repo) {
		return nil, fmt.Errorf("invalid repository %q/%q", owner, repo)
	}
	archive := repo + ".tar.gz"
	return []Step{
		{
			Description:     fmt.Sprintf("Download the %s/%s archive over HTTPS", owner, repo),
			Tool:            tool.RunBash,
			Args:            withCwd(map[string]any{"command": fmt.Sprintf("curl -L -o %s https://github.com/%s/%s/archive/HEAD.tar.gz", archive, owner, repo)}, rc),
			ExpectedOutcome: archive + " saved in the working directory",
		},
		{
			Description:     fmt.Sprintf("Extract the archive into %s", repo),
			Tool:            tool.RunBash,
			Args:            withCwd(map[string]any{"command": fmt.Sprintf("mkdir -p %s && tar -xzf %s -C %s --strip-components=1", repo, archive, repo)}, rc),
			ExpectedOutcome: fmt.Sprintf("repository sources available under %s/", repo),
		},
	}, nil
}

func expandSandboxPath(p map[string]string, rc *Context) ([]Step, error) {
	root := rc.SandboxRoot
	if root == "" {
		root = rc.WorkingDir
	}
	if root == "" {
		return nil, fmt.Errorf("no sandbox directory known")
	}
	path := p["path"]
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") && filepath.IsAbs(path) == filepath.IsAbs(root) {
		return nil, fmt.Errorf("path %s is already inside the sandbox", path)
	}
	relocated := filepath.Join(root, filepath.Base(path))

	key, _ := rc.pathArg()
	if key == "" {
		key = "path"
	}
	args := rc.copyArgs()
	if cmd, ok := args["command"].(string); ok && key == "path" && strings.Contains(cmd, path) {
		args["command"] = strings.ReplaceAll(cmd, path, relocated)
	} else {
		args[key] = relocated
	}
	return []Step{{
		Description:     fmt.Sprintf("Retry %s with %s relocated to %s", rc.FailedTool, path, relocated),
		Tool:            rc.FailedTool,
		Args:            args,
		ExpectedOutcome: "the call succeeds inside the sandbox",
	}}, nil
}

func expandVerifyParent(p map[string]string) ([]Step, error) {
	path := p["path"]
	if path == "" {
		return nil, fmt.Errorf("no path to verify")
	}
	parent := filepath.Dir(path)
	return []Step{{
		Description:     fmt.Sprintf("List %s to verify that %s exists and is accessible", parent, filepath.Base(path)),
		Tool:            tool.ReadDir,
		Args:            map[string]any{"path": parent},
		ExpectedOutcome: "directory listing showing the actual file names",
	}}, nil
}

func expandAdjustTimeout(rc *Context) ([]Step, error) {
	current := defaultTimeoutSeconds
	if v, ok := rc.FailedArgs["timeout"]; ok {
		if n, ok := numeric(v); ok && n > 0 {
			current = int(n)
		}
	}
	if current >= maxTimeoutSeconds {
		return nil, fmt.Errorf("timeout already at the %ds maximum", maxTimeoutSeconds)
	}
	next := current * 2
	if next > maxTimeoutSeconds {
		next = maxTimeoutSeconds
	}
	args := rc.copyArgs()
	args["timeout"] = next
	return []Step{{
		Description:     fmt.Sprintf("Retry %s with the timeout raised from %ds to %ds", rc.FailedTool, current, next),
		Tool:            rc.FailedTool,
		Args:            args,
		ExpectedOutcome: "the call completes within the extended timeout",
	}}, nil
}

func expandFixParamTypes(rc *Context) ([]Step, error) {
	if rc.Tools == nil {
		return nil, fmt.Errorf("no tool catalog")
	}
	def, ok := rc.Tools.Lookup(rc.FailedTool)
	if !ok {
		return nil, fmt.Errorf("tool %s has no declared parameters", rc.FailedTool)
	}
	args, changed := def.CoerceArgs(rc.FailedArgs)
	if len(changed) == 0 {
		return nil, fmt.Errorf("no argument of %s needs conversion", rc.FailedTool)
	}
	if err := def.ValidateArgs(args); err != nil {
		return nil, err
	}
	return []Step{{
		Description:     fmt.Sprintf("Retry %s with %s converted to the declared types", rc.FailedTool, strings.Join(changed, ", ")),
		Tool:            rc.FailedTool,
		Args:            args,
		ExpectedOutcome: "the tool accepts the arguments",
	}}, nil
}

func expandInstallCommand(p map[string]string) ([]Step, error) {
	cmd := p["command"]
	if !safeCommandName.MatchString(cmd) {
		return nil, fmt.Errorf("refusing to install %q", cmd)
	}
	pkg := cmd
	if mapped, ok := commandPackages[cmd]; ok {
		pkg = mapped
	}
	install := fmt.Sprintf(
		"(command -v apt-get >/dev/null 2>&1 && sudo apt-get install -y %[1]s) || (command -v brew >/dev/null 2>&1 && brew install %[1]s) || (command -v apk >/dev/null 2>&1 && sudo apk add %[1]s)",
		pkg)
	return []Step{
		{
			Description:     fmt.Sprintf("Install the %s package", pkg),
			Tool:            tool.RunBash,
			Args:            map[string]any{"command": install},
			ExpectedOutcome: pkg + " installed",
		},
		{
			Description:     fmt.Sprintf("Confirm %s is on PATH", cmd),
			Tool:            tool.RunBash,
			Args:            map[string]any{"command": "command -v " + cmd},
			ExpectedOutcome: "the path of " + cmd,
		},
	}, nil
}

func expandAlternativeTool(p map[string]string, rc *Context) ([]Step, error) {
	name := p["tool"]
	if name == "" {
		return nil, fmt.Errorf("no alternative tool named")
	}
	args := map[string]any{}
	if p["reuse_args"] == "true" {
		args = rc.copyArgs()
	}
	for k, v := range p {
		if arg, ok := strings.CutPrefix(k, "arg."); ok {
			args[arg] = v
		}
	}
	description := p["instructions"]
	if description == "" {
		description = "Use " + name + " instead of " + rc.FailedTool
	}
	expect := p["expect"]
	if expect == "" {
		expect = "the intended result of the failed call"
	}
	return []Step{{
		Description:     description,
		Tool:            name,
		Args:            args,
		ExpectedOutcome: expect,
	}}, nil
}

func expandRetry(rc *Context) ([]Step, error) {
	if rc.FailedTool == "" {
		return nil, fmt.Errorf("no failed call to retry")
	}
	return []Step{{
		Description:     fmt.Sprintf("Wait %ds, then retry %s unchanged", backoffSeconds, rc.FailedTool),
		Tool:            rc.FailedTool,
		Args:            rc.copyArgs(),
		ExpectedOutcome: "the transient failure has cleared",
		WaitSeconds:     backoffSeconds,
	}}, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(n, "s")), 64)
		return f, err == nil
	}
	return 0, false
}

package recovery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

// TemplateKind selects how a strategy expands into concrete steps.
type TemplateKind string

const (
	DownloadExtract    TemplateKind = "download_extract"
	SandboxPath        TemplateKind = "sandbox_path"
	VerifyParent       TemplateKind = "verify_parent"
	AdjustTimeout      TemplateKind = "adjust_timeout"
	FixParamTypes      TemplateKind = "fix_param_types"
	AskUser            TemplateKind = "ask_user"
	InstallCommand     TemplateKind = "install_command"
	UseAlternativeTool TemplateKind = "use_alternative_tool"
	RetryBackoff       TemplateKind = "retry_backoff"
)

// Template is an unexpanded recovery recipe. For UseAlternativeTool, params
// named "arg.<name>" become step arguments.
type Template struct {
	Kind   TemplateKind      `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Strategy is one candidate remedy produced by a category generator.
type Strategy struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Confidence          float64  `json:"confidence"`
	EstimatedIterations int      `json:"estimatedIterations"`
	RequiredTools       []string `json:"requiredTools,omitempty"`
	Template            Template `json:"template"`
}

func (s Strategy) score() float64 {
	iters := s.EstimatedIterations
	if iters < 1 {
		iters = 1
	}
	return s.Confidence / float64(iters)
}

type generator func(d *Diagnosis, rc *Context) []Strategy

// generators must hold an entry for every Category.
var generators = map[Category]generator{
	CommandNotFound:  commandNotFoundStrategies,
	ToolNotFound:     toolNotFoundStrategies,
	PermissionDenied: permissionDeniedStrategies,
	Timeout:          timeoutStrategies,
	FileNotFound:     fileNotFoundStrategies,
	InvalidArguments: invalidArgumentsStrategies,
	SyntaxError:      syntaxErrorStrategies,
	NetworkError:     networkErrorStrategies,
	Unknown:          unknownStrategies,
}

func generatorFor(c Category) generator {
	if g, ok := generators[c]; ok {
		return g
	}
	return unknownStrategies
}

var (
	githubRepoPattern    = regexp.MustCompile(`github\.com[:/]([\w.-]+)/([\w.-]+?)(?:\.git)?(?:[/\s"']|$)`)
	ghClonePattern       = regexp.MustCompile(`\bgh\s+repo\s+clone\s+([\w.-]+)/([\w.-]+?)(?:\.git)?(?:[\s"']|$)`)
	missingCommandRegexp = regexp.MustCompile(`(?:^|[\s:])([\w.+-]+): (?:command )?not found`)
	urlPattern           = regexp.MustCompile(`https?://[^\s"'<>]+`)
	quotedPathPattern    = regexp.MustCompile(`['"‘“](/[^'"’”]+|\.{1,2}/[^'"’”]+)['"’”]`)
	colonPathPattern     = regexp.MustCompile(`((?:/|\./|\.\./)[^\s:'"]+):\s*(?:No such file|Permission denied)`)
)

func commandNotFoundStrategies(d *Diagnosis, rc *Context) []Strategy {
	var out []Strategy
	if owner, repo, ok := githubRepo(rc.commandLine()); ok {
		out = append(out, Strategy{
			Name:                "download_archive",
			Description:         fmt.Sprintf("Download %s/%s as a tarball over HTTPS and extract it instead of cloning", owner, repo),
			Confidence:          0.85,
			EstimatedIterations: 2,
			RequiredTools:       []string{tool.RunBash},
			Template:            Template{Kind: DownloadExtract, Params: map[string]string{"owner": owner, "repo": repo}},
		})
	}
	if cmd := rc.missingCommand(); cmd != "" {
		out = append(out, Strategy{
			Name:                "install_command",
			Description:         fmt.Sprintf("Install the missing %s command with the system package manager", cmd),
			Confidence:          0.6,
			EstimatedIterations: 2,
			RequiredTools:       []string{tool.RunBash},
			Template:            Template{Kind: InstallCommand, Params: map[string]string{"command": cmd}},
		})
	}
	return out
}

func toolNotFoundStrategies(d *Diagnosis, rc *Context) []Strategy {
	var out []Strategy
	if canonical, ok := tool.Alias(rc.FailedTool); ok && canonical != rc.FailedTool {
		out = append(out, Strategy{
			Name:                "use_registered_tool",
			Description:         fmt.Sprintf("Retry the call with the registered tool %s", canonical),
			Confidence:          0.8,
			EstimatedIterations: 1,
			RequiredTools:       []string{canonical},
			Template:            Template{Kind: UseAlternativeTool, Params: map[string]string{"tool": canonical, "reuse_args": "true"}},
		})
	}
	if cmd := rc.commandLine(); cmd != "" {
		out = append(out, Strategy{
			Name:                "run_via_shell",
			Description:         "Run the intended command directly in the shell",
			Confidence:          0.5,
			EstimatedIterations: 1,
			RequiredTools:       []string{tool.RunBash},
			Template:            Template{Kind: UseAlternativeTool, Params: map[string]string{"tool": tool.RunBash, "arg.command": cmd}},
		})
	}
	return out
}

func permissionDeniedStrategies(d *Diagnosis, rc *Context) []Strategy {
	_, path := rc.pathArg()
	if path == "" {
		return nil
	}
	var out []Strategy
	if rc.FailedTool != "" {
		out = append(out, Strategy{
			Name:                "use_sandbox_path",
			Description:         "Retry with the path relocated under the writable sandbox directory",
			Confidence:          0.75,
			EstimatedIterations: 1,
			RequiredTools:       []string{rc.FailedTool},
			Template:            Template{Kind: SandboxPath, Params: map[string]string{"path": path}},
		})
	}
	out = append(out, Strategy{
		Name:                "inspect_parent_directory",
		Description:         "List the parent directory to check ownership and permissions",
		Confidence:          0.5,
		EstimatedIterations: 1,
		RequiredTools:       []string{tool.ReadDir},
		Template:            Template{Kind: VerifyParent, Params: map[string]string{"path": path}},
	})
	return out
}

func timeoutStrategies(d *Diagnosis, rc *Context) []Strategy {
	if rc.FailedTool == "" {
		return nil
	}
	return []Strategy{
		{
			Name:                "extend_timeout",
			Description:         "Retry with a doubled timeout",
			Confidence:          0.7,
			EstimatedIterations: 1,
			RequiredTools:       []string{rc.FailedTool},
			Template:            Template{Kind: AdjustTimeout},
		},
		retryStrategy(rc, 0.45),
	}
}

func fileNotFoundStrategies(d *Diagnosis, rc *Context) []Strategy {
	_, path := rc.pathArg()
	if path == "" {
		return nil
	}
	searchRoot := rc.WorkingDir
	if searchRoot == "" {
		searchRoot = "."
	}
	return []Strategy{
		{
			Name:                "verify_parent_directory",
			Description:         "List the parent directory to confirm the exact file name",
			Confidence:          0.8,
			EstimatedIterations: 1,
			RequiredTools:       []string{tool.ReadDir},
			Template:            Template{Kind: VerifyParent, Params: map[string]string{"path": path}},
		},
		{
			Name:                "search_for_file",
			Description:         fmt.Sprintf("Search the workspace for %s", filepath.Base(path)),
			Confidence:          0.6,
			EstimatedIterations: 2,
			RequiredTools:       []string{tool.SearchFiles},
			Template: Template{Kind: UseAlternativeTool, Params: map[string]string{
				"tool":         tool.SearchFiles,
				"arg.pattern":  filepath.Base(path),
				"arg.path":     searchRoot,
				"expect":       "candidate locations of " + filepath.Base(path),
				"instructions": "search for the missing file by name",
			}},
		},
	}
}

func invalidArgumentsStrategies(d *Diagnosis, rc *Context) []Strategy {
	if rc.FailedTool == "" {
		return nil
	}
	return []Strategy{{
		Name:                "fix_parameter_types",
		Description:         "Convert arguments to the types declared by the tool and retry",
		Confidence:          0.75,
		EstimatedIterations: 1,
		RequiredTools:       []string{rc.FailedTool},
		Template:            Template{Kind: FixParamTypes},
	}}
}

func syntaxErrorStrategies(d *Diagnosis, rc *Context) []Strategy {
	_, path := rc.pathArg()
	if path == "" {
		return nil
	}
	return []Strategy{{
		Name:                "inspect_source",
		Description:         fmt.Sprintf("Read %s to locate the syntax error before editing", path),
		Confidence:          0.6,
		EstimatedIterations: 2,
		RequiredTools:       []string{tool.ReadFile},
		Template: Template{Kind: UseAlternativeTool, Params: map[string]string{
			"tool":         tool.ReadFile,
			"arg.path":     path,
			"expect":       "file content around the reported error",
			"instructions": "read the file that failed to parse",
		}},
	}}
}

func networkErrorStrategies(d *Diagnosis, rc *Context) []Strategy {
	var out []Strategy
	if rc.FailedTool != "" {
		out = append(out, retryStrategy(rc, 0.65))
	}
	url := rc.url()
	if url == "" {
		return out
	}
	switch rc.FailedTool {
	case tool.RunBash:
		out = append(out, Strategy{
			Name:                "fetch_with_tool",
			Description:         "Fetch the resource with the HTTP tool instead of the shell",
			Confidence:          0.55,
			EstimatedIterations: 1,
			RequiredTools:       []string{tool.FetchURL},
			Template:            Template{Kind: UseAlternativeTool, Params: map[string]string{"tool": tool.FetchURL, "arg.url": url}},
		})
	default:
		out = append(out, Strategy{
			Name:                "fetch_with_curl",
			Description:         "Fetch the resource with curl and automatic retries",
			Confidence:          0.55,
			EstimatedIterations: 1,
			RequiredTools:       []string{tool.RunBash},
			Template: Template{Kind: UseAlternativeTool, Params: map[string]string{
				"tool":        tool.RunBash,
				"arg.command": "curl -fsSL --retry 3 --max-time 60 " + shellQuote(url),
			}},
		})
	}
	return out
}

func unknownStrategies(d *Diagnosis, rc *Context) []Strategy {
	if rc.FailedTool == "" {
		return nil
	}
	return []Strategy{retryStrategy(rc, 0.4)}
}

func retryStrategy(rc *Context, confidence float64) Strategy {
	return Strategy{
		Name:                "retry_with_backoff",
		Description:         "Wait briefly and retry the same call",
		Confidence:          confidence,
		EstimatedIterations: 2,
		RequiredTools:       []string{rc.FailedTool},
		Template:            Template{Kind: RetryBackoff},
	}
}

func askUserStrategy(d *Diagnosis, rc *Context) Strategy {
	return Strategy{
		Name:                "ask_user",
		Description:         "Ask the user how to proceed",
		Confidence:          0.3,
		EstimatedIterations: 1,
		Template:            Template{Kind: AskUser, Params: map[string]string{"question": userQuestion(d, rc)}},
	}
}

// remedyStrategies turns the diagnosis' own suggestions into strategies.
// Remedies that name no tool cannot be expanded and are skipped.
func remedyStrategies(d *Diagnosis, rc *Context) []Strategy {
	var out []Strategy
	for _, r := range d.Alternatives {
		if len(r.Tools) == 0 || strings.TrimSpace(r.Strategy) == "" {
			continue
		}
		tools := make([]string, 0, len(r.Tools))
		for _, name := range r.Tools {
			if rc.Tools != nil {
				name, _ = tool.Resolve(rc.Tools, name)
			}
			tools = append(tools, name)
		}
		out = append(out, Strategy{
			Name:                slug(r.Strategy),
			Description:         r.Description,
			Confidence:          0.45,
			EstimatedIterations: 2,
			RequiredTools:       tools,
			Template: Template{Kind: UseAlternativeTool, Params: map[string]string{
				"tool":         tools[0],
				"instructions": r.Description,
			}},
		})
	}
	return out
}

func userQuestion(d *Diagnosis, rc *Context) string {
	subject := "The last step"
	if rc.FailedTool != "" {
		subject = "The " + rc.FailedTool + " call"
	}
	reason := d.RootCause.Description
	if reason == "" {
		reason = rc.ErrorMessage
	}
	if reason == "" {
		return fmt.Sprintf("%s failed (%s). How should I proceed?", subject, d.RootCause.Category)
	}
	return fmt.Sprintf("%s failed (%s): %s. How should I proceed?", subject, d.RootCause.Category, truncate(reason, 200))
}

// githubRepo finds a GitHub clone target given as a URL or as the
// owner/repo argument of gh repo clone.
func githubRepo(command string) (owner, repo string, ok bool) {
	m := githubRepoPattern.FindStringSubmatch(command)
	if m == nil {
		m = ghClonePattern.FindStringSubmatch(command)
	}
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSuffix(m[2], ".git"), true
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

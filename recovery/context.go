package recovery

import (
	"strings"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

// Context describes the failed call a plan is generated for.
type Context struct {
	// Tools is the caller's available tool set. Strategies requiring a
	// tool outside it are never proposed.
	Tools        tool.Catalog
	FailedTool   string
	FailedArgs   map[string]any
	ErrorMessage string
	WorkingDir   string
	// SandboxRoot is the writable directory used to relocate paths after a
	// permission failure. WorkingDir is used when empty.
	SandboxRoot string
	// Attempts counts recovery plans already executed for this failure.
	Attempts int
}

var pathKeys = []string{"path", "file", "file_path", "filepath", "filename", "target", "dest", "destination"}

func (rc *Context) has(name string) bool {
	return rc.Tools != nil && rc.Tools.Has(name)
}

func (rc *Context) stringArg(keys ...string) (string, string) {
	for _, k := range keys {
		if s, ok := rc.FailedArgs[k].(string); ok && strings.TrimSpace(s) != "" {
			return k, s
		}
	}
	return "", ""
}

func (rc *Context) commandLine() string {
	_, cmd := rc.stringArg("command", "cmd")
	return cmd
}

// missingCommand names the executable the shell could not find.
func (rc *Context) missingCommand() string {
	if m := missingCommandRegexp.FindStringSubmatch(rc.ErrorMessage); m != nil {
		return m[1]
	}
	for _, field := range strings.Fields(rc.commandLine()) {
		if field == "sudo" || strings.Contains(field, "=") {
			continue
		}
		return field
	}
	return ""
}

// pathArg returns the argument key and value of the path the call touched.
// When no argument carries it, the path is recovered from the error text
// with an empty key.
func (rc *Context) pathArg() (string, string) {
	if k, v := rc.stringArg(pathKeys...); k != "" {
		return k, v
	}
	if m := colonPathPattern.FindStringSubmatch(rc.ErrorMessage); m != nil {
		return "", m[1]
	}
	if m := quotedPathPattern.FindStringSubmatch(rc.ErrorMessage); m != nil {
		return "", m[1]
	}
	return "", ""
}

func (rc *Context) url() string {
	if _, u := rc.stringArg("url"); u != "" {
		return u
	}
	if u := urlPattern.FindString(rc.commandLine()); u != "" {
		return u
	}
	return urlPattern.FindString(rc.ErrorMessage)
}

func (rc *Context) copyArgs() map[string]any {
	out := make(map[string]any, len(rc.FailedArgs))
	for k, v := range rc.FailedArgs {
		out[k] = v
	}
	return out
}

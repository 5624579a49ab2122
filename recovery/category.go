package recovery

import (
	"regexp"
	"strings"
)

// Category is the closed set of tool-failure root causes. The string values
// are wire contracts shared with diagnosis producers and persisted episodes.
type Category string

const (
	CommandNotFound  Category = "COMMAND_NOT_FOUND"
	ToolNotFound     Category = "TOOL_NOT_FOUND"
	PermissionDenied Category = "PERMISSION_DENIED"
	Timeout          Category = "TIMEOUT"
	FileNotFound     Category = "FILE_NOT_FOUND"
	InvalidArguments Category = "INVALID_ARGUMENTS"
	SyntaxError      Category = "SYNTAX_ERROR"
	NetworkError     Category = "NETWORK_ERROR"
	Unknown          Category = "UNKNOWN"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{
		CommandNotFound,
		ToolNotFound,
		PermissionDenied,
		Timeout,
		FileNotFound,
		InvalidArguments,
		SyntaxError,
		NetworkError,
		Unknown,
	}
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalises free text ("command-not-found", "timeout") to a
// category. Anything unrecognised maps to Unknown.
func ParseCategory(s string) Category {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if c := Category(norm); c.Valid() {
		return c
	}
	return Unknown
}

type classifierRule struct {
	category Category
	pattern  *regexp.Regexp
}

// Ordered: the first matching rule wins.
var classifierRules = []classifierRule{
	{ToolNotFound, regexp.MustCompile(`(?i)(unknown|unsupported|no such|invalid) tool|tool .*not (found|registered|available)`)},
	{CommandNotFound, regexp.MustCompile(`(?i)command not found|not recognized as an internal or external command|executable file not found|exit (status|code) 127\b`)},
	{PermissionDenied, regexp.MustCompile(`(?i)permission denied|operation not permitted|access (is )?denied|EACCES|EPERM|read-only file system`)},
	{Timeout, regexp.MustCompile(`(?i)timed? ?out|deadline exceeded|ETIMEDOUT`)},
	{FileNotFound, regexp.MustCompile(`(?i)no such file or directory|file not found|cannot find the (file|path)|ENOENT|does not exist`)},
	{NetworkError, regexp.MustCompile(`(?i)connection (refused|reset)|could not resolve host|network is unreachable|name resolution|ECONNREFUSED|ENOTFOUND|TLS handshake|no route to host`)},
	{SyntaxError, regexp.MustCompile(`(?i)syntax error|unexpected (token|end of file|EOF)|parse error|invalid syntax`)},
	{InvalidArguments, regexp.MustCompile(`(?i)invalid (argument|parameter|option|value)|missing required (parameter|argument)|unrecognized (option|argument)|usage:|expected .* got`)},
}

// ClassifyError maps a raw error message to a category with keyword rules.
func ClassifyError(message string) Category {
	for _, rule := range classifierRules {
		if rule.pattern.MatchString(message) {
			return rule.category
		}
	}
	return Unknown
}

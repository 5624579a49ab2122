package tool

import "strings"

var aliases = map[string]string{
	"bash":        RunBash,
	"shell":       RunBash,
	"sh":          RunBash,
	"command":     RunBash,
	"exec":        RunBash,
	"terminal":    RunBash,
	"read":        ReadFile,
	"cat":         ReadFile,
	"view":        ReadFile,
	"open":        ReadFile,
	"ls":          ReadDir,
	"dir":         ReadDir,
	"list":        ReadDir,
	"list_dir":    ReadDir,
	"list_files":  ReadDir,
	"write":       WriteFile,
	"save":        WriteFile,
	"create_file": WriteFile,
	"grep":        SearchFiles,
	"search":      SearchFiles,
	"find":        SearchFiles,
	"time":        GetTime,
	"date":        GetTime,
	"now":         GetTime,
	"fetch":       FetchURL,
	"curl":        FetchURL,
	"wget":        FetchURL,
	"http":        FetchURL,
}

// Alias returns the canonical tool name for a common synonym.
func Alias(name string) (string, bool) {
	canonical, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Resolve maps name onto a tool present in the catalog, consulting the
// alias table when the name itself is unknown. When nothing resolves the
// original name is returned with ok=false.
func Resolve(c Catalog, name string) (string, bool) {
	if c.Has(name) {
		return name, true
	}
	if canonical, ok := Alias(name); ok && c.Has(canonical) {
		return canonical, true
	}
	return name, false
}

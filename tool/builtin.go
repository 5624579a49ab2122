package tool

// Built-in tool names every agent host is expected to provide.
const (
	RunBash     = "run_bash"
	ReadFile    = "read_file"
	ReadDir     = "read_dir"
	WriteFile   = "write_file"
	SearchFiles = "search_files"
	GetTime     = "get_time"
	FetchURL    = "fetch_url"
)

// Builtins returns the default tool set.
func Builtins() []*Tool {
	return []*Tool{
		{
			Name:        RunBash,
			Description: "Run a shell command and return its output",
			Parameters: []Parameter{
				{Name: "command", Type: "string", Description: "command line to execute", Required: true},
				{Name: "timeout", Type: "number", Description: "timeout in seconds"},
				{Name: "cwd", Type: "string", Description: "working directory"},
			},
		},
		{
			Name:        ReadFile,
			Description: "Read a text file",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "file path", Required: true},
			},
		},
		{
			Name:        ReadDir,
			Description: "List a directory",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "directory path", Required: true},
			},
		},
		{
			Name:        WriteFile,
			Description: "Write content to a file, creating it if needed",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "file path", Required: true},
				{Name: "content", Type: "string", Description: "file content", Required: true},
			},
		},
		{
			Name:        SearchFiles,
			Description: "Search file contents for a pattern",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "text or regular expression", Required: true},
				{Name: "path", Type: "string", Description: "directory to search"},
			},
		},
		{
			Name:        GetTime,
			Description: "Return the current time",
		},
		{
			Name:        FetchURL,
			Description: "Fetch a URL over HTTP",
			Parameters: []Parameter{
				{Name: "url", Type: "string", Description: "absolute URL", Required: true},
			},
		},
	}
}

// DefaultRegistry returns a registry holding the built-in tools.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins()...)
}

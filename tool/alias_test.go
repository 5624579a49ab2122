package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliasTable(t *testing.T) {
	cases := map[string][]string{
		RunBash:     {"bash", "shell", "sh", "command", "exec", "terminal"},
		ReadFile:    {"read", "cat", "view", "open"},
		ReadDir:     {"ls", "dir", "list", "list_dir", "list_files"},
		WriteFile:   {"write", "save", "create_file"},
		SearchFiles: {"grep", "search", "find"},
		GetTime:     {"time", "date", "now"},
		FetchURL:    {"fetch", "curl", "wget", "http"},
	}
	for want, names := range cases {
		for _, name := range names {
			got, ok := Alias(name)
			assert.True(t, ok, name)
			assert.Equal(t, want, got, name)

			upper, _ := Alias(" " + name + " ")
			assert.Equal(t, want, upper, "alias lookup trims input")
		}
	}
}

func TestResolve(t *testing.T) {
	r := DefaultRegistry()

	name, ok := Resolve(r, "read_file")
	assert.True(t, ok)
	assert.Equal(t, "read_file", name)

	name, ok = Resolve(r, "Bash")
	assert.True(t, ok)
	assert.Equal(t, RunBash, name)

	name, ok = Resolve(r, "teleport")
	assert.False(t, ok)
	assert.Equal(t, "teleport", name)

	// an alias whose target is not registered does not resolve
	name, ok = Resolve(NewRegistry(&Tool{Name: ReadFile}), "ls")
	assert.False(t, ok)
	assert.Equal(t, "ls", name)
}

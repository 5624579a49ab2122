// Package tool describes the tools an agent may invoke. The decision core
// never executes tools; it only needs their names and parameter shapes to
// validate plans and shape recovery steps.
package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Parameter defines a tool parameter
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, integer, boolean, object, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Tool represents a callable tool/function
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Parameter returns the named parameter, if declared.
func (t *Tool) Parameter(name string) (Parameter, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ValidateArgs validates the provided arguments against the tool's parameters
func (t *Tool) ValidateArgs(args map[string]any) error {
	for _, param := range t.Parameters {
		if param.Required {
			if _, ok := args[param.Name]; !ok {
				return fmt.Errorf("missing required parameter: %s", param.Name)
			}
		}
	}
	return nil
}

// CoerceArgs returns a copy of args with values converted to the declared
// parameter types where the conversion is lossless (for example "30" to 30
// for a number parameter). It also reports which arguments changed.
func (t *Tool) CoerceArgs(args map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(args))
	var changed []string
	for k, v := range args {
		out[k] = v
		p, ok := t.Parameter(k)
		if !ok {
			continue
		}
		if nv, ok := coerce(p.Type, v); ok {
			out[k] = nv
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return out, changed
}

func coerce(typ string, v any) (any, bool) {
	switch typ {
	case "number", "integer":
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if typ == "integer" {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n, true
			}
			return nil, false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b, true
			}
		}
	case "string":
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), true
		case int:
			return strconv.Itoa(n), true
		case int64:
			return strconv.FormatInt(n, 10), true
		case bool:
			return strconv.FormatBool(n), true
		}
	}
	return nil, false
}

// Catalog is the read-only view of the tool registry consulted by the
// reflection engine and the planners.
type Catalog interface {
	Names() []string
	Has(name string) bool
	Lookup(name string) (*Tool, bool)
	Describe() string
}

// Registry manages a collection of tools
// All operations are thread-safe using RWMutex protection
type Registry struct {
	mu    sync.RWMutex // Protects tools map
	tools map[string]*Tool
}

// NewRegistry creates a new tool registry
func NewRegistry(tools ...*Tool) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	for _, t := range tools {
		_ = r.Upsert(t)
	}
	return r
}

// Register adds a tool to the registry
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Upsert adds or replaces a tool definition in the registry.
func (r *Registry) Upsert(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = make(map[string]*Tool)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// Lookup retrieves a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// Describe renders the catalog as a bullet list for prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, t := range r.List() {
		b.WriteString("- ")
		b.WriteString(t.Name)
		if len(t.Parameters) > 0 {
			params := make([]string, 0, len(t.Parameters))
			for _, p := range t.Parameters {
				s := p.Name + ": " + p.Type
				if !p.Required {
					s += "?"
				}
				params = append(params, s)
			}
			b.WriteString("(" + strings.Join(params, ", ") + ")")
		}
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// MarshalJSON customizes JSON marshaling for Registry
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.List())
}

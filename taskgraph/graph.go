// Package taskgraph explores a bounded tree of candidate multi-step futures
// and reduces it to a few ranked paths.
package taskgraph

import (
	"context"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

// HardMaxDepth caps the search depth whatever the configuration says.
const HardMaxDepth = 5

// Step is one tool call inside an alternative.
type Step struct {
	Description     string         `json:"description"`
	Tool            string         `json:"tool"`
	Args            map[string]any `json:"args,omitempty"`
	ExpectedOutcome string         `json:"expectedOutcome,omitempty"`
}

// Alternative is a candidate next action.
type Alternative struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Confidence      float64 `json:"confidence"`
	Steps           []Step  `json:"steps"`
	ExpectedOutcome string  `json:"expectedOutcome,omitempty"`
}

// Context is passed through to the alternative generator.
type Context struct {
	Goal         string
	WorkingDir   string
	Tools        tool.Catalog
	PriorActions []string
}

// Generator proposes candidate next actions for a task.
type Generator interface {
	GenerateAlternatives(ctx context.Context, task string, gc Context) ([]Alternative, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, task string, gc Context) ([]Alternative, error)

// GenerateAlternatives implements Generator.
func (f GeneratorFunc) GenerateAlternatives(ctx context.Context, task string, gc Context) ([]Alternative, error) {
	return f(ctx, task, gc)
}

// Node is one point in the search tree. Via is the alternative that led
// here and is nil at the root.
type Node struct {
	Task         string        `json:"task"`
	Depth        int           `json:"depth"`
	Via          *Alternative  `json:"via,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Children     []*Node       `json:"children,omitempty"`
}

// Path is a root-to-leaf sequence of chosen alternatives.
type Path struct {
	Alternatives []Alternative `json:"alternatives"`
	Confidence   float64       `json:"confidence"`
	Score        float64       `json:"score"`
}

// Depth is the number of alternatives on the path.
func (p Path) Depth() int { return len(p.Alternatives) }

// Stats describes one search.
type Stats struct {
	NodesExplored          int           `json:"nodesExplored"`
	AlternativesConsidered int           `json:"alternativesConsidered"`
	AlternativesPruned     int           `json:"alternativesPruned"`
	PathsBeforePrune       int           `json:"pathsBeforePrune"`
	MaxDepthReached        int           `json:"maxDepthReached"`
	GeneratorErrors        int           `json:"generatorErrors"`
	Duration               time.Duration `json:"duration"`
}

// Graph is the result of BuildGraph. Paths are ranked best first.
type Graph struct {
	Root  *Node  `json:"root"`
	Paths []Path `json:"paths"`
	Stats Stats  `json:"stats"`
}

// Best returns the highest-ranked path, or nil when there is none.
func (g *Graph) Best() *Path {
	if g == nil || len(g.Paths) == 0 {
		return nil
	}
	return &g.Paths[0]
}

// Config bounds the search.
type Config struct {
	MaxDepth            int
	MaxBranchesPerLevel int
	MinConfidence       float64
	MaxTotalPaths       int
}

// DefaultConfig returns depth 2, two branches per level, confidence floor
// 0.3 and at most ten paths.
func DefaultConfig() Config {
	return Config{
		MaxDepth:            2,
		MaxBranchesPerLevel: 2,
		MinConfidence:       0.3,
		MaxTotalPaths:       10,
	}
}

// ConfigFrom maps the graph section of the configuration.
func ConfigFrom(c config.GraphConfig) Config {
	return Config{
		MaxDepth:            c.MaxDepth,
		MaxBranchesPerLevel: c.MaxBranchesPerLevel,
		MinConfidence:       c.MinConfidence,
		MaxTotalPaths:       c.MaxTotalPaths,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MaxDepth > HardMaxDepth {
		c.MaxDepth = HardMaxDepth
	}
	if c.MaxBranchesPerLevel <= 0 {
		c.MaxBranchesPerLevel = d.MaxBranchesPerLevel
	}
	if c.MaxTotalPaths <= 0 {
		c.MaxTotalPaths = d.MaxTotalPaths
	}
	return c
}

// childTask derives the next-level task from the alternative that was
// chosen.
func childTask(a Alternative) string {
	switch len(a.Steps) {
	case 0:
		return "continue after " + a.Name
	case 1:
		expected := strings.TrimSpace(a.Steps[0].ExpectedOutcome)
		if expected == "" {
			expected = strings.TrimSpace(a.ExpectedOutcome)
		}
		if expected == "" {
			expected = a.Name
		}
		return "verify " + expected + " and continue"
	default:
		return "complete remaining steps for " + a.Name
	}
}

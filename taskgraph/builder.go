package taskgraph

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
)

// Option configures a Builder.
type Option func(*Builder)

// WithConfig replaces the search bounds.
func WithConfig(c Config) Option {
	return func(b *Builder) { b.cfg = c }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder runs a breadth-first beam search over generated alternatives.
type Builder struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a Builder around gen.
func NewBuilder(gen Generator, opts ...Option) *Builder {
	b := &Builder{
		gen:    gen,
		cfg:    DefaultConfig(),
		logger: logging.WithComponent("taskgraph"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildGraph expands task level by level from an explicit FIFO queue.
// Nodes at the maximum depth, nodes whose generator call failed and nodes
// without surviving alternatives are leaves.
func (b *Builder) BuildGraph(ctx context.Context, task string, gc Context) *Graph {
	cfg := b.cfg.normalized()
	ctx, span := telemetry.Start(ctx, "taskgraph", "build_graph",
		attribute.Int("taskgraph.max_depth", cfg.MaxDepth),
		attribute.Int("taskgraph.max_branches", cfg.MaxBranchesPerLevel),
	)
	defer telemetry.End(span, nil)

	started := time.Now()
	g := &Graph{Root: &Node{Task: task}}
	queue := []*Node{g.Root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.Depth > g.Stats.MaxDepthReached {
			g.Stats.MaxDepthReached = n.Depth
		}
		if n.Depth >= cfg.MaxDepth {
			continue
		}
		if ctx.Err() != nil {
			b.logger.WarnContext(ctx, "graph search cancelled", "error", ctx.Err())
			break
		}

		g.Stats.NodesExplored++
		alts, err := b.gen.GenerateAlternatives(ctx, n.Task, gc)
		if err != nil {
			g.Stats.GeneratorErrors++
			b.logger.WarnContext(ctx, "alternative generation failed, node becomes a leaf",
				"depth", n.Depth,
				"error", err,
			)
			continue
		}
		g.Stats.AlternativesConsidered += len(alts)

		kept := selectAlternatives(alts, cfg)
		g.Stats.AlternativesPruned += len(alts) - len(kept)
		n.Alternatives = kept
		for i := range kept {
			child := &Node{
				Task:  childTask(kept[i]),
				Depth: n.Depth + 1,
				Via:   &n.Alternatives[i],
			}
			n.Children = append(n.Children, child)
			queue = append(queue, child)
		}
	}

	paths := extractPaths(g.Root)
	g.Stats.PathsBeforePrune = len(paths)
	g.Paths = rankPaths(paths, cfg.MaxTotalPaths)
	g.Stats.Duration = time.Now().Sub(started)

	span.SetAttributes(
		attribute.Int("taskgraph.nodes", g.Stats.NodesExplored),
		attribute.Int("taskgraph.paths", len(g.Paths)),
	)
	b.logger.DebugContext(ctx, "task graph built",
		"nodes", g.Stats.NodesExplored,
		"paths_before_prune", g.Stats.PathsBeforePrune,
		"paths", len(g.Paths),
		"generator_errors", g.Stats.GeneratorErrors,
	)
	return g
}

// selectAlternatives drops alternatives under the confidence floor and
// keeps the most confident ones up to the branch cap.
func selectAlternatives(alts []Alternative, cfg Config) []Alternative {
	kept := make([]Alternative, 0, len(alts))
	for _, a := range alts {
		if a.Confidence >= cfg.MinConfidence {
			kept = append(kept, a)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if len(kept) > cfg.MaxBranchesPerLevel {
		kept = kept[:cfg.MaxBranchesPerLevel]
	}
	return kept
}

type frame struct {
	node *Node
	path []Alternative
}

// extractPaths collects every root-to-leaf sequence of alternatives. The
// empty path of a childless root is discarded.
func extractPaths(root *Node) []Path {
	var paths []Path
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.node.Children) == 0 {
			if len(f.path) > 0 {
				paths = append(paths, newPath(f.path))
			}
			continue
		}
		// Push in reverse so children are visited in rank order.
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			child := f.node.Children[i]
			next := make([]Alternative, len(f.path), len(f.path)+1)
			copy(next, f.path)
			next = append(next, *child.Via)
			stack = append(stack, frame{node: child, path: next})
		}
	}
	return paths
}

func newPath(alts []Alternative) Path {
	var sum float64
	for _, a := range alts {
		sum += a.Confidence
	}
	mean := sum / float64(len(alts))
	return Path{
		Alternatives: alts,
		Confidence:   mean,
		Score:        float64(len(alts))*10 + mean,
	}
}

// rankPaths orders paths by depth*10 + mean confidence, so depth dominates
// and confidence breaks ties, and keeps at most limit.
func rankPaths(paths []Path, limit int) []Path {
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Score > paths[j].Score
	})
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}

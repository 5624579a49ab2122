package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/taskgraph"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

// AlternativeGenerator proposes candidate next actions for the task graph.
// When the reasoning service fails it answers with the heuristic plan as a
// single alternative instead of an error.
type AlternativeGenerator struct {
	client reasoning.Client
	opts   Options
	logger *slog.Logger
	limit  int
}

// NewAlternativeGenerator creates a generator asking for up to limit
// alternatives per call (3 when limit <= 0).
func NewAlternativeGenerator(client reasoning.Client, opts Options, limit int) *AlternativeGenerator {
	if limit <= 0 {
		limit = 3
	}
	return &AlternativeGenerator{
		client: client,
		opts:   opts,
		logger: logging.WithComponent("planner.alternatives"),
		limit:  limit,
	}
}

type reasonedAlternatives struct {
	Alternatives []struct {
		Name            string  `json:"name"`
		Description     string  `json:"description"`
		Confidence      float64 `json:"confidence"`
		ExpectedOutcome string  `json:"expectedOutcome"`
		Steps           []struct {
			Description     string         `json:"description"`
			Tool            string         `json:"tool"`
			Args            map[string]any `json:"args"`
			ExpectedOutcome string         `json:"expectedOutcome"`
		} `json:"steps"`
	} `json:"alternatives"`
}

var alternativesSchema = &reasoning.Schema{
	Name:        "alternatives",
	Description: "Candidate next actions",
	Definition: reasoning.Object(map[string]any{
		"alternatives": reasoning.Array(reasoning.Object(map[string]any{
			"name":            reasoning.Prop("string", "short identifier"),
			"description":     reasoning.Prop("string", ""),
			"confidence":      reasoning.Prop("number", "0 to 1"),
			"expectedOutcome": reasoning.Prop("string", ""),
			"steps": reasoning.Array(reasoning.Object(map[string]any{
				"description":     reasoning.Prop("string", ""),
				"tool":            reasoning.Prop("string", ""),
				"args":            map[string]any{"type": "object"},
				"expectedOutcome": reasoning.Prop("string", ""),
			}, "description", "tool", "args", "expectedOutcome")),
		}, "name", "description", "confidence", "expectedOutcome", "steps")),
	}, "alternatives"),
}

// GenerateAlternatives implements taskgraph.Generator.
func (g *AlternativeGenerator) GenerateAlternatives(ctx context.Context, task string, gc taskgraph.Context) ([]taskgraph.Alternative, error) {
	catalog := gc.Tools
	if catalog == nil {
		catalog = tool.DefaultRegistry()
	}
	alts, err := g.reasoned(ctx, task, gc, catalog)
	if err != nil {
		g.logger.WarnContext(ctx, "alternative generation failed, using heuristic", "error", err)
		return []taskgraph.Alternative{heuristicAlternative(task, catalog)}, nil
	}
	return alts, nil
}

func (g *AlternativeGenerator) reasoned(ctx context.Context, task string, gc taskgraph.Context, catalog tool.Catalog) ([]taskgraph.Alternative, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no reasoning client configured")
	}
	b := prompt.NewBuilder().
		AddSection("Goal", gc.Goal).
		AddSection("Current task", task).
		AddSection("Available tools", catalog.Describe()).
		AddList("Recent actions", lastN(gc.PriorActions, 5))
	if gc.WorkingDir != "" {
		b.AddSection("Working directory", gc.WorkingDir)
	}
	b.AddFormat("Propose up to %d distinct ways to make progress, each with 1-4 tool steps.\n", g.limit)

	resp, err := reasoning.Call(ctx, g.client, &reasoning.Request{
		Operation:   "alternatives",
		System:      "You propose alternative next actions for an autonomous agent. Respond with JSON only.",
		User:        b.Build(),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		Schema:      alternativesSchema,
	}, g.opts.Timeout)
	if err != nil {
		return nil, err
	}
	out, err := reasoning.Decode[reasonedAlternatives](resp.Text)
	if err != nil {
		return nil, err
	}
	if len(out.Alternatives) == 0 {
		return nil, fmt.Errorf("no alternatives proposed")
	}

	alts := make([]taskgraph.Alternative, 0, len(out.Alternatives))
	for _, a := range out.Alternatives {
		alt := taskgraph.Alternative{
			Name:            strings.TrimSpace(a.Name),
			Description:     a.Description,
			Confidence:      clamp01(a.Confidence),
			ExpectedOutcome: a.ExpectedOutcome,
		}
		grounded := true
		for _, s := range a.Steps {
			name, ok := tool.Resolve(catalog, s.Tool)
			grounded = grounded && ok
			alt.Steps = append(alt.Steps, taskgraph.Step{
				Description:     s.Description,
				Tool:            name,
				Args:            s.Args,
				ExpectedOutcome: s.ExpectedOutcome,
			})
		}
		if !grounded {
			alt.Confidence = min(alt.Confidence, unresolvedToolConfidence)
		}
		if alt.Name == "" {
			alt.Name = fmt.Sprintf("alternative_%d", len(alts)+1)
		}
		alts = append(alts, alt)
		if len(alts) == g.limit {
			break
		}
	}
	return alts, nil
}

func heuristicAlternative(task string, catalog tool.Catalog) taskgraph.Alternative {
	approach, steps, family := heuristicPlan(task)
	plan := &InstructionPlan{Approach: approach, Steps: steps}
	finalize(plan, catalog)

	alt := taskgraph.Alternative{
		Name:        "heuristic_" + family,
		Description: approach,
		Confidence:  plan.OverallConfidence,
	}
	for _, s := range plan.Steps {
		alt.Steps = append(alt.Steps, taskgraph.Step{
			Description:     s.Description,
			Tool:            s.Tool,
			Args:            s.Args,
			ExpectedOutcome: s.ExpectedOutcome,
		})
		alt.ExpectedOutcome = s.ExpectedOutcome
	}
	return alt
}

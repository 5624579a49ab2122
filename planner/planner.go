package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

// Options tunes instruction planning.
type Options struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// DisableFallback keeps a low-confidence reasoned plan instead of
	// replacing it with a heuristic one. Failed calls always fall back.
	DisableFallback bool
	// MinConfidence is the overall confidence below which a reasoned plan
	// is swapped for a matching heuristic plan.
	MinConfidence float64
}

// DefaultOptions returns the stock planning options.
func DefaultOptions() Options {
	return Options{
		Timeout:       15 * time.Second,
		Temperature:   0.2,
		MaxTokens:     1500,
		MinConfidence: 0.4,
	}
}

// OptionsFromConfig maps the planner section of the configuration.
func OptionsFromConfig(c config.PlannerConfig) Options {
	o := DefaultOptions()
	if c.Timeout > 0 {
		o.Timeout = c.Timeout
	}
	o.Temperature = c.Temperature
	if c.MaxTokens > 0 {
		o.MaxTokens = c.MaxTokens
	}
	o.DisableFallback = c.DisableFallback
	return o
}

// Option configures a Planner.
type Option func(*Planner)

// WithOptions replaces the planning options.
func WithOptions(o Options) Option {
	return func(p *Planner) { p.opts = o }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// Planner generates instruction plans.
type Planner struct {
	client reasoning.Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Planner. A nil client yields heuristic plans only.
func New(client reasoning.Client, opts ...Option) *Planner {
	p := &Planner{
		client: client,
		opts:   DefaultOptions(),
		logger: logging.WithComponent("planner"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type reasonedStep struct {
	Description     string         `json:"description"`
	Tool            string         `json:"tool"`
	Args            map[string]any `json:"args"`
	ExpectedOutcome string         `json:"expectedOutcome"`
	ErrorHandling   string         `json:"errorHandling"`
	Confidence      *float64       `json:"confidence"`
}

type reasonedPlan struct {
	Approach      string         `json:"approach"`
	Prerequisites []string       `json:"prerequisites"`
	Steps         []reasonedStep `json:"steps"`
	Verification  *Verification  `json:"verification"`
	Alternatives  []Alternative  `json:"alternatives"`
}

var planSchema = &reasoning.Schema{
	Name:        "instruction_plan",
	Description: "Executable steps for one action",
	Definition: reasoning.Object(map[string]any{
		"approach":      reasoning.Prop("string", "one-sentence strategy"),
		"prerequisites": reasoning.Array(reasoning.Prop("string", "")),
		"steps": reasoning.Array(reasoning.Object(map[string]any{
			"description":     reasoning.Prop("string", ""),
			"tool":            reasoning.Prop("string", "exact tool name from the list"),
			"args":            map[string]any{"type": "object"},
			"expectedOutcome": reasoning.Prop("string", ""),
			"errorHandling":   reasoning.Prop("string", ""),
			"confidence":      reasoning.Prop("number", "0 to 1"),
		}, "description", "tool", "args", "expectedOutcome", "errorHandling", "confidence")),
		"verification": reasoning.Object(map[string]any{
			"checkCommand":    reasoning.Prop("string", ""),
			"successCriteria": reasoning.Prop("string", ""),
		}, "checkCommand", "successCriteria"),
		"alternatives": reasoning.Array(reasoning.Object(map[string]any{
			"approach":   reasoning.Prop("string", ""),
			"whenToUse":  reasoning.Prop("string", ""),
			"confidence": reasoning.Prop("number", ""),
		}, "approach", "whenToUse", "confidence")),
	}, "approach", "prerequisites", "steps", "verification", "alternatives"),
}

const planSystemPrompt = `You turn one high-level action of an autonomous agent into 3 to 7 concrete tool calls.
Use only the tools listed, with their exact names and parameter names.
Prefer the simplest reliable approach. Respond with JSON only.`

// GenerateInstructions plans action. It never fails: a reasoning error,
// timeout, malformed answer or empty step list yields a heuristic plan.
func (p *Planner) GenerateInstructions(ctx context.Context, action string, pc Context) *InstructionPlan {
	start := p.now()
	ctx, span := telemetry.Start(ctx, "planner", "generate_instructions",
		attribute.Int("planner.iteration", pc.Iteration),
	)
	defer telemetry.End(span, nil)

	catalog := pc.catalog()
	plan, err := p.reasoned(ctx, action, pc)
	switch {
	case err != nil:
		p.logger.WarnContext(ctx, "planning failed, using heuristic plan", "error", err)
		plan = p.heuristic(action, "reasoning failed: "+err.Error())
	default:
		finalize(plan, catalog)
		if !p.opts.DisableFallback && plan.OverallConfidence < p.opts.MinConfidence {
			if _, _, matched := heuristicPlan(action); matched != "generic" {
				p.logger.InfoContext(ctx, "low-confidence plan replaced by heuristic",
					"confidence", plan.OverallConfidence,
					"family", matched,
				)
				plan = p.heuristic(action, fmt.Sprintf("reasoned plan confidence %.2f below %.2f", plan.OverallConfidence, p.opts.MinConfidence))
			}
		}
	}

	finalize(plan, catalog)
	plan.ID = newID()
	plan.Timestamp = start.UTC()
	plan.TaskAction = action
	plan.PlanningTimeMs = p.now().Sub(start).Milliseconds()

	span.SetAttributes(
		attribute.Bool("planner.fallback_used", plan.FallbackUsed),
		attribute.Int("planner.steps", len(plan.Steps)),
		attribute.Float64("planner.confidence", plan.OverallConfidence),
	)
	return plan
}

func (p *Planner) reasoned(ctx context.Context, action string, pc Context) (*InstructionPlan, error) {
	if p.client == nil {
		return nil, fmt.Errorf("no reasoning client configured")
	}
	resp, err := reasoning.Call(ctx, p.client, &reasoning.Request{
		Operation:   "plan",
		System:      planSystemPrompt,
		User:        buildPlanPrompt(action, pc),
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
		Schema:      planSchema,
	}, p.opts.Timeout)
	if err != nil {
		return nil, err
	}
	out, err := reasoning.Decode[reasonedPlan](resp.Text)
	if err != nil {
		return nil, err
	}
	if len(out.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}

	plan := &InstructionPlan{
		Approach:      out.Approach,
		Prerequisites: out.Prerequisites,
		Verification:  out.Verification,
		Alternatives:  out.Alternatives,
		Steps:         make([]Step, 0, len(out.Steps)),
	}
	for _, s := range out.Steps {
		conf := defaultStepConfidence
		if s.Confidence != nil {
			conf = *s.Confidence
		}
		plan.Steps = append(plan.Steps, Step{
			Description:     s.Description,
			Tool:            strings.TrimSpace(s.Tool),
			Args:            s.Args,
			ExpectedOutcome: s.ExpectedOutcome,
			ErrorHandling:   s.ErrorHandling,
			Confidence:      conf,
		})
	}
	return plan, nil
}

func (p *Planner) heuristic(action, reason string) *InstructionPlan {
	approach, steps, _ := heuristicPlan(action)
	return &InstructionPlan{
		Approach:       approach,
		Steps:          steps,
		FallbackUsed:   true,
		FallbackReason: reason,
	}
}

func buildPlanPrompt(action string, pc Context) string {
	b := prompt.NewBuilder()
	b.AddSection("Goal", pc.Goal)
	b.AddSection("Action to plan", action)
	b.AddSection("Available tools", pc.catalog().Describe())
	if pc.WorkingDir != "" {
		b.AddSection("Working directory", pc.WorkingDir)
	}
	if pc.Iteration > 0 {
		b.AddSection("Iteration", fmt.Sprintf("%d", pc.Iteration))
	}
	b.AddList("Recent actions", lastN(pc.PriorActions, 5))

	failures := make([]string, 0, len(pc.RecentFailures))
	for _, f := range pc.RecentFailures {
		line := fmt.Sprintf("%s: %s", f.Tool, prompt.Truncate(f.Error, 200))
		if f.RootCause != "" {
			line += fmt.Sprintf(" (root cause: %s)", f.RootCause)
		}
		failures = append(failures, line)
	}
	b.AddList("Recent failures to avoid repeating", failures)
	b.AddLine("Return 3-7 steps plus prerequisites, a verification check and alternatives.")
	return b.Build()
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

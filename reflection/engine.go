// Package reflection assesses agent progress each iteration and diagnoses
// failed tool calls.
package reflection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ai-autopilot/audit"
	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

// Assessment is the engine's verdict on the session.
type Assessment string

const (
	Continue Assessment = "continue"
	Complete Assessment = "complete"
	Stuck    Assessment = "stuck"
)

const (
	historyWindow       = 10
	historyTextLimit    = 300
	degradedConfidence  = 0.3
	diversityWindow     = 5
	diversityThreshold  = 4
	repetitionThreshold = 3
)

// Iteration is one past step of the session.
type Iteration struct {
	Number    int    `json:"number"`
	Action    string `json:"action"`
	Tool      string `json:"tool,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Result    string `json:"result,omitempty"`
	Success   bool   `json:"success"`
}

// State is the session as seen by the engine.
type State struct {
	Task            string      `json:"task"`
	Iteration       int         `json:"iteration"`
	ProgressPercent float64     `json:"progressPercent"`
	History         []Iteration `json:"history,omitempty"`
}

// Guidance is optional text injected into the prompt. Blocks are dropped
// from the last to the first when the prompt exceeds its token budget.
type Guidance struct {
	Learnings        string `json:"learnings,omitempty"`
	Preferences      string `json:"preferences,omitempty"`
	EpisodeSummaries string `json:"episodeSummaries,omitempty"`
	Recommendations  string `json:"recommendations,omitempty"`
}

func (g Guidance) blocks() []guidanceBlock {
	return []guidanceBlock{
		{"Learnings from past sessions", g.Learnings},
		{"User preferences", g.Preferences},
		{"Similar past episodes", g.EpisodeSummaries},
		{"Recommendations", g.Recommendations},
	}
}

type guidanceBlock struct {
	title string
	text  string
}

// ToolPlan is the tool the engine expects to use next.
type ToolPlan struct {
	Tool    string `json:"tool"`
	Purpose string `json:"purpose"`
}

// Result is one reflection. A degraded result carries the same fields plus
// the reason the safe default was used.
type Result struct {
	Assessment           Assessment `json:"assessment"`
	ProgressPercent      float64    `json:"progressPercent"`
	ConfidenceRaw        float64    `json:"confidenceRaw"`
	ConfidenceCalibrated float64    `json:"confidenceCalibrated"`
	NextAction           string     `json:"nextAction"`
	Reasoning            string     `json:"reasoning"`
	ToolPlan             *ToolPlan  `json:"toolPlan,omitempty"`
	TaskType             TaskType   `json:"taskType"`
	Degraded             bool       `json:"degraded,omitempty"`
	DegradedReason       string     `json:"degradedReason,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig applies the reflection section of the configuration.
func WithConfig(c config.ReflectionConfig) Option {
	return func(e *Engine) {
		if c.Timeout > 0 {
			e.timeout = c.Timeout
		}
		if c.MaxTokens > 0 {
			e.maxTokens = c.MaxTokens
		}
		e.temperature = c.Temperature
		if c.PromptTokenBudget > 0 {
			e.tokenBudget = c.PromptTokenBudget
		}
	}
}

// WithTokenCounter sets the counter used to enforce the prompt budget.
func WithTokenCounter(c prompt.TokenCounter) Option {
	return func(e *Engine) {
		if c != nil {
			e.counter = c
		}
	}
}

// WithAnalyzer sets the root-cause analyzer used by Diagnose.
func WithAnalyzer(a Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithAuditSink sets where diagnosis events go.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs reflections and diagnoses. It keeps no per-session state.
type Engine struct {
	client      reasoning.Client
	timeout     time.Duration
	maxTokens   int
	temperature float64
	tokenBudget int
	counter     prompt.TokenCounter
	analyzer    Analyzer
	sink        audit.Sink
	logger      *slog.Logger
}

// NewEngine creates an Engine. Without WithAnalyzer, diagnoses go through
// a ReasoningAnalyzer on the same client.
func NewEngine(client reasoning.Client, opts ...Option) *Engine {
	e := &Engine{
		client:      client,
		timeout:     20 * time.Second,
		maxTokens:   800,
		temperature: 0.3,
		tokenBudget: 6000,
		counter:     prompt.ApproxCounter{},
		logger:      logging.WithComponent("reflection"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.analyzer == nil && client != nil {
		e.analyzer = NewReasoningAnalyzer(client, e.timeout)
	}
	if e.sink == nil {
		e.sink = audit.NewLogSink(e.logger)
	}
	return e
}

type reasonedReflection struct {
	Assessment      string    `json:"assessment"`
	ProgressPercent *float64  `json:"progressPercent"`
	Confidence      *float64  `json:"confidence"`
	NextAction      string    `json:"nextAction"`
	Reasoning       string    `json:"reasoning"`
	ToolPlan        *ToolPlan `json:"toolPlan"`
}

var reflectionSchema = &reasoning.Schema{
	Name:        "reflection",
	Description: "Progress assessment and next action",
	Definition: reasoning.Object(map[string]any{
		"assessment":      reasoning.Enum("overall state", string(Continue), string(Complete), string(Stuck)),
		"progressPercent": reasoning.Prop("number", "0 to 100"),
		"confidence":      reasoning.Prop("number", "0 to 1"),
		"nextAction":      reasoning.Prop("string", "the single next high-level action"),
		"reasoning":       reasoning.Prop("string", ""),
		"toolPlan": reasoning.Object(map[string]any{
			"tool":    reasoning.Prop("string", ""),
			"purpose": reasoning.Prop("string", ""),
		}, "tool", "purpose"),
	}, "assessment", "progressPercent", "confidence", "nextAction", "reasoning"),
}

const reflectSystemPrompt = `You supervise an autonomous agent working toward a goal.
Judge progress honestly, say whether the task is complete, still in progress or stuck,
and name one concrete next action. Respond with JSON only.`

// Reflect assesses progress. It never fails: any reasoning or decoding
// error produces a degraded result that keeps the prior progress and is
// never calibrated.
func (e *Engine) Reflect(ctx context.Context, st State, catalog tool.Catalog, cal Calibrator, g Guidance) Result {
	taskType := ClassifyTask(st.Task)
	ctx, span := telemetry.Start(ctx, "reflection", "reflect",
		attribute.String("reflection.task_type", string(taskType)),
		attribute.Int("reflection.iteration", st.Iteration),
	)
	defer telemetry.End(span, nil)

	res, err := e.reflect(ctx, st, taskType, catalog, g)
	if err != nil {
		e.logger.WarnContext(ctx, "reflection degraded", "error", err, "iteration", st.Iteration)
		res = degraded(st, taskType, err.Error())
	}

	planned := ""
	if res.ToolPlan != nil {
		planned = res.ToolPlan.Tool
	}
	res.ConfidenceCalibrated = res.ConfidenceRaw
	if cal != nil && !res.Degraded {
		res.ConfidenceCalibrated = clamp(cal.Calibrate(res.ConfidenceRaw, taskType, planned), 0, 1)
	}

	span.SetAttributes(
		attribute.String("reflection.assessment", string(res.Assessment)),
		attribute.Bool("reflection.degraded", res.Degraded),
		attribute.Float64("reflection.confidence", res.ConfidenceCalibrated),
	)
	return res
}

func (e *Engine) reflect(ctx context.Context, st State, taskType TaskType, catalog tool.Catalog, g Guidance) (Result, error) {
	if e.client == nil {
		return Result{}, fmt.Errorf("no reasoning client configured")
	}
	resp, err := reasoning.Call(ctx, e.client, &reasoning.Request{
		Operation:   "reflect",
		System:      reflectSystemPrompt,
		User:        e.buildPrompt(st, taskType, catalog, g),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Schema:      reflectionSchema,
	}, e.timeout)
	if err != nil {
		return Result{}, err
	}
	out, err := reasoning.Decode[reasonedReflection](resp.Text)
	if err != nil {
		return Result{}, err
	}

	assessment := Assessment(strings.ToLower(strings.TrimSpace(out.Assessment)))
	switch assessment {
	case Continue, Complete, Stuck:
	default:
		return Result{}, fmt.Errorf("unknown assessment %q", out.Assessment)
	}

	progress := st.ProgressPercent
	if out.ProgressPercent != nil {
		progress = *out.ProgressPercent
	}
	confidence := degradedConfidence
	if out.Confidence != nil {
		confidence = *out.Confidence
	}
	res := Result{
		Assessment:      assessment,
		ProgressPercent: clamp(progress, 0, 100),
		ConfidenceRaw:   clamp(confidence, 0, 1),
		NextAction:      strings.TrimSpace(out.NextAction),
		Reasoning:       out.Reasoning,
		TaskType:        taskType,
	}
	if out.ToolPlan != nil && strings.TrimSpace(out.ToolPlan.Tool) != "" {
		tp := *out.ToolPlan
		if catalog != nil {
			tp.Tool, _ = tool.Resolve(catalog, tp.Tool)
		}
		res.ToolPlan = &tp
	}
	if res.NextAction == "" && res.Assessment == Continue {
		res.NextAction = genericNextAction(st.Task)
	}
	return res, nil
}

func degraded(st State, taskType TaskType, reason string) Result {
	return Result{
		Assessment:      Continue,
		ProgressPercent: clamp(st.ProgressPercent, 0, 100),
		ConfidenceRaw:   degradedConfidence,
		NextAction:      genericNextAction(st.Task),
		Reasoning:       "Reflection unavailable; continuing with the current plan.",
		TaskType:        taskType,
		Degraded:        true,
		DegradedReason:  reason,
	}
}

func genericNextAction(task string) string {
	return "Review the latest results and take the next concrete step toward: " + prompt.Truncate(task, 200)
}

// buildPrompt assembles the user message, dropping guidance blocks from the
// end while the prompt is over budget.
func (e *Engine) buildPrompt(st State, taskType TaskType, catalog tool.Catalog, g Guidance) string {
	blocks := g.blocks()
	for {
		text := e.renderPrompt(st, taskType, catalog, blocks)
		if e.counter.CountTokens(text) <= e.tokenBudget || !hasGuidance(blocks) {
			return text
		}
		for i := len(blocks) - 1; i >= 0; i-- {
			if strings.TrimSpace(blocks[i].text) != "" {
				e.logger.Debug("dropping guidance block over token budget", "block", blocks[i].title)
				blocks[i].text = ""
				break
			}
		}
	}
}

func hasGuidance(blocks []guidanceBlock) bool {
	for _, b := range blocks {
		if strings.TrimSpace(b.text) != "" {
			return true
		}
	}
	return false
}

func (e *Engine) renderPrompt(st State, taskType TaskType, catalog tool.Catalog, blocks []guidanceBlock) string {
	b := prompt.NewBuilder()
	b.AddSection("Task", st.Task)
	b.AddSection("Task type", string(taskType))
	b.AddSection("Status", fmt.Sprintf("Iteration %d, progress %.0f%%", st.Iteration, st.ProgressPercent))
	if catalog != nil {
		b.AddSection("Available tools", catalog.Describe())
	}

	recent := st.History
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	lines := make([]string, 0, len(recent))
	for _, it := range recent {
		status := "ok"
		if !it.Success {
			status = "failed"
		}
		line := fmt.Sprintf("#%d [%s] %s", it.Number, status, it.Action)
		if it.Tool != "" {
			line += " (tool: " + it.Tool + ")"
		}
		if it.Reasoning != "" {
			line += "\n  reasoning: " + prompt.Truncate(it.Reasoning, historyTextLimit)
		}
		if it.Result != "" {
			line += "\n  result: " + prompt.Truncate(it.Result, historyTextLimit)
		}
		lines = append(lines, line)
	}
	b.AddList("Recent iterations", lines)
	b.AddList("Warnings", warnings(st.History))

	for _, g := range blocks {
		b.AddSection(g.title, g.text)
	}
	b.AddLine("Assess progress and decide the next action.")
	return b.Build()
}

// warnings flags low tool diversity and repeated actions.
func warnings(history []Iteration) []string {
	var out []string

	window := history
	if len(window) > diversityWindow {
		window = window[len(window)-diversityWindow:]
	}
	counts := make(map[string]int)
	for _, it := range window {
		if it.Tool != "" {
			counts[it.Tool]++
		}
	}
	for name, n := range counts {
		if n >= diversityThreshold {
			out = append(out, fmt.Sprintf("Low tool diversity: %s was used in %d of the last %d iterations. Consider a different approach.", name, n, len(window)))
		}
	}

	if len(history) >= repetitionThreshold {
		last := history[len(history)-repetitionThreshold:]
		first := normalizeAction(last[0].Action)
		repeated := first != ""
		for _, it := range last[1:] {
			if normalizeAction(it.Action) != first {
				repeated = false
				break
			}
		}
		if repeated {
			out = append(out, fmt.Sprintf("Repetition: the action %q was attempted %d times in a row. Do something different or declare the task stuck.", prompt.Truncate(last[0].Action, 80), repetitionThreshold))
		}
	}
	return out
}

func normalizeAction(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

package reflection

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/recovery"
)

const whyChainLength = 5

// ReasoningAnalyzer runs a "5 Whys" analysis through the reasoning service.
type ReasoningAnalyzer struct {
	client  reasoning.Client
	timeout time.Duration
}

// NewReasoningAnalyzer creates an analyzer bounded by timeout.
func NewReasoningAnalyzer(client reasoning.Client, timeout time.Duration) *ReasoningAnalyzer {
	return &ReasoningAnalyzer{client: client, timeout: timeout}
}

func categoryNames() []string {
	cats := recovery.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

var diagnosisSchema = &reasoning.Schema{
	Name:        "diagnosis",
	Description: "Root cause analysis of a failed tool call",
	Definition: reasoning.Object(map[string]any{
		"rootCause": reasoning.Object(map[string]any{
			"category":    reasoning.Enum("failure category", categoryNames()...),
			"description": reasoning.Prop("string", ""),
			"confidence":  reasoning.Prop("number", "0 to 1"),
		}, "category", "description", "confidence"),
		"whyChain": reasoning.Array(reasoning.Prop("string", "one causal step")),
		"alternatives": reasoning.Array(reasoning.Object(map[string]any{
			"strategy":    reasoning.Prop("string", "short snake_case name"),
			"description": reasoning.Prop("string", ""),
			"tools":       reasoning.Array(reasoning.Prop("string", "")),
		}, "strategy", "description")),
	}, "rootCause", "whyChain"),
}

const diagnoseSystemPrompt = `You diagnose failed tool calls made by an autonomous agent.
Ask "why" five times, from the visible symptom down to the root cause, then classify the
root cause and propose alternative remedies using only the listed tools. Respond with JSON only.`

// Analyze implements Analyzer.
func (a *ReasoningAnalyzer) Analyze(ctx context.Context, in AnalysisInput) (*recovery.Diagnosis, error) {
	resp, err := reasoning.Call(ctx, a.client, &reasoning.Request{
		Operation:   "diagnose",
		System:      diagnoseSystemPrompt,
		User:        diagnosisPrompt(in),
		Temperature: 0.2,
		MaxTokens:   1000,
		Schema:      diagnosisSchema,
	}, a.timeout)
	if err != nil {
		return nil, err
	}
	d, err := reasoning.Decode[recovery.Diagnosis](resp.Text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.RootCause.Description) == "" && len(d.WhyChain) == 0 {
		return nil, fmt.Errorf("diagnosis has no root cause")
	}
	if len(d.WhyChain) > whyChainLength {
		d.WhyChain = d.WhyChain[:whyChainLength]
	}
	return d, nil
}

func diagnosisPrompt(in AnalysisInput) string {
	b := prompt.NewBuilder()
	b.AddSection("Failed tool", in.Tool)
	if len(in.Args) > 0 {
		args := make([]string, 0, len(in.Args))
		for k, v := range in.Args {
			args = append(args, fmt.Sprintf("%s=%v", k, v))
		}
		slices.Sort(args)
		b.AddList("Arguments", args)
	}
	b.AddSection("Error", in.Error.Message)
	if in.Error.ExitCode != nil {
		b.AddSection("Exit code", fmt.Sprint(*in.Error.ExitCode))
	}
	b.AddSection("Signal", in.Error.Signal)
	b.AddSection("Stdout", in.Error.Stdout)
	b.AddSection("Stderr", in.Error.Stderr)
	b.AddList("Prior actions", in.PriorActions)
	b.AddSection("Available tools", strings.Join(in.ToolNames, ", "))
	b.AddSection("Categories", strings.Join(categoryNames(), ", "))
	return b.Build()
}

// HeuristicAnalyzer classifies the error text with keyword rules. It never
// fails and is useful as the last entry in a Fallback chain.
type HeuristicAnalyzer struct{}

// Analyze implements Analyzer.
func (HeuristicAnalyzer) Analyze(_ context.Context, in AnalysisInput) (*recovery.Diagnosis, error) {
	text := strings.TrimSpace(in.Error.Message + "\n" + in.Error.Stderr)
	category := recovery.ClassifyError(text)
	confidence := 0.5
	if category == recovery.Unknown {
		confidence = 0.2
	}
	return &recovery.Diagnosis{
		RootCause: recovery.RootCause{
			Category:    category,
			Description: fmt.Sprintf("%s failed: %s", in.Tool, prompt.Truncate(strings.TrimSpace(in.Error.Message), 200)),
			Confidence:  confidence,
		},
		WhyChain: []string{fmt.Sprintf("The error output matches the %s pattern.", category)},
	}, nil
}

// Fallback tries each analyzer in turn and returns the first diagnosis.
func Fallback(analyzers ...Analyzer) Analyzer {
	return AnalyzerFunc(func(ctx context.Context, in AnalysisInput) (*recovery.Diagnosis, error) {
		var lastErr error
		for _, a := range analyzers {
			if a == nil {
				continue
			}
			d, err := a.Analyze(ctx, in)
			if err == nil && d != nil {
				return d, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no analyzer produced a diagnosis")
		}
		return nil, lastErr
	})
}

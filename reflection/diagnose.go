package reflection

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ai-autopilot/audit"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

const (
	priorActionWindow = 3
	outputLimit       = 2000
)

// ErrorDetail is what the executor captured for a failed call.
type ErrorDetail struct {
	Message  string `json:"message"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

// Failure identifies one failed tool call and where it happened.
type Failure struct {
	ConversationID string         `json:"conversationId,omitempty"`
	TurnID         string         `json:"turnId,omitempty"`
	Iteration      int            `json:"iteration"`
	Tool           string         `json:"tool"`
	Args           map[string]any `json:"args,omitempty"`
	Error          ErrorDetail    `json:"error"`
	PriorActions   []string       `json:"priorActions,omitempty"`
	Tools          tool.Catalog   `json:"-"`
}

// AnalysisInput is the condensed view handed to an Analyzer.
type AnalysisInput struct {
	Tool         string
	Args         map[string]any
	Error        ErrorDetail
	PriorActions []string
	ToolNames    []string
}

// Analyzer performs the root-cause analysis of one failure.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (*recovery.Diagnosis, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, in AnalysisInput) (*recovery.Diagnosis, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, in AnalysisInput) (*recovery.Diagnosis, error) {
	return f(ctx, in)
}

// Diagnose explains a failed tool call. It returns nil when no diagnosis
// could be produced; the caller continues without one.
func (e *Engine) Diagnose(ctx context.Context, f Failure) *recovery.Diagnosis {
	ctx, span := telemetry.Start(ctx, "reflection", "diagnose",
		attribute.String("reflection.failed_tool", f.Tool),
		attribute.Int("reflection.iteration", f.Iteration),
	)
	var err error
	defer func() { telemetry.End(span, err) }()

	if e.analyzer == nil {
		err = fmt.Errorf("no analyzer configured")
		e.logger.WarnContext(ctx, "diagnosis skipped", "error", err)
		return nil
	}

	in := analysisInput(f)
	var d *recovery.Diagnosis
	d, err = e.analyzer.Analyze(ctx, in)
	if err == nil && d == nil {
		err = fmt.Errorf("analyzer returned no diagnosis")
	}
	if err != nil {
		e.logger.WarnContext(ctx, "diagnosis failed", "tool", f.Tool, "iteration", f.Iteration, "error", err)
		return nil
	}
	normalizeDiagnosis(d, in.Error.Message)
	span.SetAttributes(attribute.String("reflection.root_cause", string(d.RootCause.Category)))

	ev := audit.Stamp(audit.Event{
		Type:           audit.EventDiagnosis,
		ConversationID: f.ConversationID,
		TurnID:         f.TurnID,
		Iteration:      f.Iteration,
		FailedTool:     f.Tool,
		ErrorMessage:   in.Error.Message,
		Diagnosis:      d,
	})
	if emitErr := e.sink.Emit(ctx, ev); emitErr != nil {
		e.logger.WarnContext(ctx, "audit emit failed", "event_id", ev.ID, "error", emitErr)
	}
	return d
}

func analysisInput(f Failure) AnalysisInput {
	prior := f.PriorActions
	if len(prior) > priorActionWindow {
		prior = prior[len(prior)-priorActionWindow:]
	}
	var names []string
	if f.Tools != nil {
		names = f.Tools.Names()
	}
	detail := f.Error
	detail.Stdout = Condense(detail.Stdout, outputLimit)
	detail.Stderr = Condense(detail.Stderr, outputLimit)
	return AnalysisInput{
		Tool:         f.Tool,
		Args:         f.Args,
		Error:        detail,
		PriorActions: append([]string(nil), prior...),
		ToolNames:    names,
	}
}

// normalizeDiagnosis forces the category into the closed set and clamps
// the confidence.
func normalizeDiagnosis(d *recovery.Diagnosis, message string) {
	c := recovery.ParseCategory(string(d.RootCause.Category))
	if c == recovery.Unknown {
		c = recovery.ClassifyError(message)
	}
	d.RootCause.Category = c
	d.RootCause.Confidence = clamp(d.RootCause.Confidence, 0, 1)
}

var (
	htmlPattern       = regexp.MustCompile(`(?i)<\s*(!doctype\s+html|html|body|head)[\s>]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Condense shortens captured output for a prompt. HTML pages are reduced
// to their visible text.
func Condense(output string, limit int) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	if htmlPattern.MatchString(output) {
		if text, ok := htmlText(output); ok {
			output = text
		}
	}
	return prompt.Truncate(output, limit)
}

func htmlText(page string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript").Remove()
	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	text := strings.TrimSpace(whitespacePattern.ReplaceAllString(sel.Text(), " "))
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" && !strings.Contains(text, title) {
		text = title + ": " + text
	}
	return text, true
}

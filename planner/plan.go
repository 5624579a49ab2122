// Package planner turns one high-level action into a validated, numbered,
// tool-grounded instruction plan.
package planner

import (
	"time"

	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/tool"
)

const (
	defaultStepConfidence    = 0.7
	unresolvedToolConfidence = 0.3
)

// Step is one executable instruction.
type Step struct {
	StepNumber      int            `json:"stepNumber"`
	Description     string         `json:"description"`
	Tool            string         `json:"tool"`
	Args            map[string]any `json:"args"`
	ExpectedOutcome string         `json:"expectedOutcome"`
	ErrorHandling   string         `json:"errorHandling,omitempty"`
	Confidence      float64        `json:"confidence"`
}

// Verification describes how to check the plan worked.
type Verification struct {
	CheckCommand    string `json:"checkCommand"`
	SuccessCriteria string `json:"successCriteria"`
}

// Alternative is another way to reach the same outcome.
type Alternative struct {
	Approach   string  `json:"approach"`
	WhenToUse  string  `json:"whenToUse"`
	Confidence float64 `json:"confidence"`
}

// InstructionPlan is the planner's result. It is always well formed; a
// heuristic plan has FallbackUsed set and FallbackReason explains why.
type InstructionPlan struct {
	ID                string        `json:"id"`
	Timestamp         time.Time     `json:"timestamp"`
	TaskAction        string        `json:"taskAction"`
	Approach          string        `json:"approach"`
	Prerequisites     []string      `json:"prerequisites"`
	Steps             []Step        `json:"steps"`
	Verification      *Verification `json:"verification,omitempty"`
	Alternatives      []Alternative `json:"alternatives"`
	OverallConfidence float64       `json:"overallConfidence"`
	FallbackUsed      bool          `json:"fallbackUsed"`
	FallbackReason    string        `json:"fallbackReason,omitempty"`
	PlanningTimeMs    int64         `json:"planningTimeMs"`
}

// Failure is a recent failed step the planner should steer around.
type Failure struct {
	Tool      string            `json:"tool"`
	Error     string            `json:"error"`
	RootCause recovery.Category `json:"rootCause,omitempty"`
}

// Context is what the planner knows about the session.
type Context struct {
	Goal           string
	Tools          tool.Catalog
	WorkingDir     string
	Iteration      int
	PriorActions   []string
	RecentFailures []Failure
}

func (c Context) catalog() tool.Catalog {
	if c.Tools == nil {
		return tool.DefaultRegistry()
	}
	return c.Tools
}

// finalize numbers steps contiguously, grounds their tools in the catalog
// and recomputes the overall confidence.
func finalize(p *InstructionPlan, catalog tool.Catalog) {
	for i := range p.Steps {
		s := &p.Steps[i]
		s.StepNumber = i + 1
		if s.Args == nil {
			s.Args = map[string]any{}
		}
		s.Confidence = clamp01(s.Confidence)

		name, ok := tool.Resolve(catalog, s.Tool)
		s.Tool = name
		if !ok {
			s.Confidence = min(s.Confidence, unresolvedToolConfidence)
			continue
		}
		if t, found := catalog.Lookup(name); found {
			s.Args, _ = t.CoerceArgs(s.Args)
		}
	}
	p.OverallConfidence = meanConfidence(p.Steps)
	if p.Prerequisites == nil {
		p.Prerequisites = []string{}
	}
	if p.Alternatives == nil {
		p.Alternatives = []Alternative{}
	}
}

func meanConfidence(steps []Step) float64 {
	if len(steps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range steps {
		sum += s.Confidence
	}
	return sum / float64(len(steps))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

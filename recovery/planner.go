// Package recovery maps a failure diagnosis onto a ranked recovery plan.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
)

const (
	// MaxRecoveryAttempts bounds how many recovery plans are executed for
	// one failure.
	MaxRecoveryAttempts = 2
	maxFallbacks        = 2
	priorMinSamples     = 3
	priorWeightK        = 10.0
)

// PrimaryStrategy is the strategy chosen for execution.
type PrimaryStrategy struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Confidence          float64 `json:"confidence"`
	EstimatedIterations int     `json:"estimatedIterations"`
	Steps               []Step  `json:"steps"`
}

// Fallback is a runner-up strategy offered if the primary fails.
type Fallback struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Plan is the result of GenerateRecoveryPlan. When HasRecoveryPlan is
// false, Reason explains why and SuggestUserAction is set.
type Plan struct {
	HasRecoveryPlan     bool             `json:"hasRecoveryPlan"`
	Category            Category         `json:"category"`
	PrimaryStrategy     *PrimaryStrategy `json:"primaryStrategy,omitempty"`
	FallbackStrategies  []Fallback       `json:"fallbackStrategies,omitempty"`
	MaxRecoveryAttempts int              `json:"maxRecoveryAttempts,omitempty"`
	Reason              string           `json:"reason,omitempty"`
	SuggestUserAction   bool             `json:"suggestUserAction,omitempty"`
}

// Priors reports how often a strategy has fixed a category before.
type Priors interface {
	StrategyOutcomes(category Category, strategy string) (successes, total int)
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPriors blends historical strategy success rates into confidences.
func WithPriors(priors Priors) Option {
	return func(p *Planner) {
		p.priors = priors
	}
}

// Planner produces recovery plans. It is stateless and safe for concurrent
// use.
type Planner struct {
	logger *slog.Logger
	priors Priors
}

// NewPlanner creates a recovery planner.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{logger: logging.WithComponent("recovery")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateRecoveryPlan ranks the viable strategies for the diagnosed
// category and expands the best one into steps. It never fails; the absence
// of a plan is reported through Plan.HasRecoveryPlan.
func (p *Planner) GenerateRecoveryPlan(ctx context.Context, d *Diagnosis, rc Context) *Plan {
	_, span := telemetry.Start(ctx, "recovery", "generate_recovery_plan",
		attribute.String("recovery.failed_tool", rc.FailedTool),
		attribute.Int("recovery.attempts", rc.Attempts),
	)
	plan := p.generate(d, &rc)
	span.SetAttributes(
		attribute.String("recovery.category", string(plan.Category)),
		attribute.Bool("recovery.has_plan", plan.HasRecoveryPlan),
	)
	telemetry.End(span, nil)
	return plan
}

func (p *Planner) generate(d *Diagnosis, rc *Context) *Plan {
	if d == nil {
		return noPlan(Unknown, "no diagnosis available")
	}
	category := d.RootCause.Category
	if !category.Valid() {
		category = Unknown
	}
	logger := p.logger.With("category", category, "failed_tool", rc.FailedTool)

	if rc.Attempts >= MaxRecoveryAttempts {
		logger.Info("recovery attempts exhausted", "attempts", rc.Attempts)
		return noPlan(category, fmt.Sprintf("recovery already attempted %d times", rc.Attempts))
	}

	candidates := generatorFor(category)(d, rc)
	candidates = append(candidates, remedyStrategies(d, rc)...)
	candidates = append(candidates, askUserStrategy(d, rc))

	viable := p.rank(category, filterViable(candidates, rc))
	logger.Debug("recovery strategies ranked", "candidates", len(candidates), "viable", len(viable))

	var (
		primary   *PrimaryStrategy
		fallbacks []Fallback
	)
	for _, s := range viable {
		steps, err := expand(s, rc)
		if err != nil {
			logger.Debug("strategy not applicable", "strategy", s.Name, "error", err)
			continue
		}
		if primary == nil {
			primary = &PrimaryStrategy{
				Name:                s.Name,
				Description:         s.Description,
				Confidence:          s.Confidence,
				EstimatedIterations: s.EstimatedIterations,
				Steps:               steps,
			}
			continue
		}
		fallbacks = append(fallbacks, Fallback{Name: s.Name, Description: s.Description, Confidence: s.Confidence})
		if len(fallbacks) == maxFallbacks {
			break
		}
	}

	if primary == nil {
		logger.Warn("no viable recovery strategy")
		return noPlan(category, fmt.Sprintf("%v for %s with the available tools", errorskg.ErrNoViableStrategy, category))
	}

	logger.Info("recovery plan generated", "strategy", primary.Name, "confidence", primary.Confidence, "fallbacks", len(fallbacks))
	return &Plan{
		HasRecoveryPlan:     true,
		Category:            category,
		PrimaryStrategy:     primary,
		FallbackStrategies:  fallbacks,
		MaxRecoveryAttempts: MaxRecoveryAttempts,
	}
}

func noPlan(category Category, reason string) *Plan {
	return &Plan{
		Category:          category,
		Reason:            reason,
		SuggestUserAction: true,
	}
}

func filterViable(candidates []Strategy, rc *Context) []Strategy {
	out := make([]Strategy, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
outer:
	for _, s := range candidates {
		if seen[s.Name] {
			continue
		}
		for _, name := range s.RequiredTools {
			if !rc.has(name) {
				continue outer
			}
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}

// rank orders strategies by confidence per estimated iteration, keeping
// generator order on ties.
func (p *Planner) rank(category Category, strategies []Strategy) []Strategy {
	if p.priors != nil {
		for i := range strategies {
			strategies[i].Confidence = p.applyPrior(category, strategies[i])
		}
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].score() > strategies[j].score()
	})
	return strategies
}

func (p *Planner) applyPrior(category Category, s Strategy) float64 {
	successes, total := p.priors.StrategyOutcomes(category, s.Name)
	if total < priorMinSamples {
		return s.Confidence
	}
	w := float64(total) / (float64(total) + priorWeightK)
	rate := float64(successes) / float64(total)
	c := (1-w)*s.Confidence + w*rate
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/memory"
	"github.com/sweetpotato0/ai-autopilot/reflection"
)

type reflectInput struct {
	State    reflection.State    `json:"state"`
	Guidance reflection.Guidance `json:"guidance"`
}

var reflectFlags struct {
	input    string
	noMemory bool
}

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Assess session progress and choose the next action",
	Long: `Reads {"state": {...}, "guidance": {...}} as JSON and prints the
reflection. Unless --no-memory is set, similar past episodes and common
error patterns are added to the guidance and the confidence is calibrated
against episode history.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		var in reflectInput
		if err := readInput(reflectFlags.input, &in); err != nil {
			return err
		}
		engine, err := a.engine(ctx)
		if err != nil {
			return err
		}

		var cal reflection.Calibrator
		if !reflectFlags.noMemory {
			mem, err := a.memory(ctx)
			if err != nil {
				return err
			}
			cal = reflection.NewHistoryCalibrator(mem)
			enrichGuidance(ctx, mem, in.State.Task, &in.Guidance)
		}

		return emit(engine.Reflect(ctx, in.State, a.tools, cal, in.Guidance))
	}),
}

func enrichGuidance(ctx context.Context, mem *memory.Store, task string, g *reflection.Guidance) {
	if g.EpisodeSummaries == "" {
		var lines []string
		for _, r := range mem.SearchSimilar(ctx, task, memory.SearchOptions{Limit: 3, MinScore: 0.1}) {
			status := "failed"
			if r.Episode.Success {
				status = "succeeded"
			}
			lines = append(lines, fmt.Sprintf("- %s (%s in %d iterations, strategy %q, similarity %.2f)",
				r.Episode.Task, status, r.Episode.Iterations, r.Episode.Strategy, r.Score))
		}
		g.EpisodeSummaries = strings.Join(lines, "\n")
	}
	if g.Recommendations == "" {
		var lines []string
		for _, p := range mem.CommonErrorPatterns(3) {
			lines = append(lines, fmt.Sprintf("- On %s, %q recovered %d times (avg %.1f iterations)",
				p.Category, p.BestStrategy, p.BestStrategyUses, p.AvgIterationsToSuccess))
		}
		g.Recommendations = strings.Join(lines, "\n")
	}
}

var diagnoseInput string

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Explain a failed tool call",
	Long:  `Reads a failure as JSON and prints the root-cause diagnosis, or null when none could be produced.`,
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		var f reflection.Failure
		if err := readInput(diagnoseInput, &f); err != nil {
			return err
		}
		f.Tools = a.tools
		engine, err := a.engine(ctx)
		if err != nil {
			return err
		}
		return emit(engine.Diagnose(ctx, f))
	}),
}

// engine builds a reflection engine whose diagnoses fall back to keyword
// classification when the reasoning service is unavailable.
func (a *app) engine(ctx context.Context) (*reflection.Engine, error) {
	client, err := a.reasoningClient(ctx)
	if err != nil {
		return nil, err
	}
	rc := a.cfg.Reflection
	return reflection.NewEngine(client,
		reflection.WithConfig(rc),
		reflection.WithTokenCounter(a.tokenCounter()),
		reflection.WithAnalyzer(reflection.Fallback(
			reflection.NewReasoningAnalyzer(client, rc.Timeout),
			reflection.HeuristicAnalyzer{},
		)),
		reflection.WithAuditSink(a.auditSink(ctx)),
	), nil
}

func init() {
	reflectCmd.Flags().StringVarP(&reflectFlags.input, "input", "i", "-", "JSON input file, - for stdin")
	reflectCmd.Flags().BoolVar(&reflectFlags.noMemory, "no-memory", false, "skip episodic guidance and calibration")
	diagnoseCmd.Flags().StringVarP(&diagnoseInput, "input", "i", "-", "JSON input file, - for stdin")
	rootCmd.AddCommand(reflectCmd, diagnoseCmd)
}

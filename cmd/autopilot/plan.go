package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/planner"
	"github.com/sweetpotato0/ai-autopilot/taskgraph"
)

var planFlags struct {
	goal       string
	workingDir string
	iteration  int
	prior      []string
}

var planCmd = &cobra.Command{
	Use:   "plan <action>",
	Short: "Turn a high-level action into concrete tool steps",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		client, err := a.reasoningClient(ctx)
		if err != nil {
			return err
		}
		p := planner.New(client, planner.WithOptions(planner.OptionsFromConfig(a.cfg.Planner)))
		plan := p.GenerateInstructions(ctx, strings.Join(args, " "), planner.Context{
			Goal:         planFlags.goal,
			Tools:        a.tools,
			WorkingDir:   planFlags.workingDir,
			Iteration:    planFlags.iteration,
			PriorActions: planFlags.prior,
		})
		return emit(plan)
	}),
}

var graphFlags struct {
	goal         string
	workingDir   string
	alternatives int
	pathsOnly    bool
}

var graphCmd = &cobra.Command{
	Use:   "graph <task>",
	Short: "Explore alternative approaches a few steps ahead",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		client, err := a.reasoningClient(ctx)
		if err != nil {
			return err
		}
		gen := planner.NewAlternativeGenerator(client, planner.OptionsFromConfig(a.cfg.Planner), graphFlags.alternatives)
		b := taskgraph.NewBuilder(gen, taskgraph.WithConfig(taskgraph.ConfigFrom(a.cfg.Graph)))
		g := b.BuildGraph(ctx, strings.Join(args, " "), taskgraph.Context{
			Goal:       graphFlags.goal,
			WorkingDir: graphFlags.workingDir,
			Tools:      a.tools,
		})
		if graphFlags.pathsOnly {
			return emit(struct {
				Paths []taskgraph.Path `json:"paths"`
				Stats taskgraph.Stats  `json:"stats"`
			}{g.Paths, g.Stats})
		}
		return emit(g)
	}),
}

func init() {
	planCmd.Flags().StringVar(&planFlags.goal, "goal", "", "overall session goal")
	planCmd.Flags().StringVar(&planFlags.workingDir, "cwd", "", "working directory of the session")
	planCmd.Flags().IntVar(&planFlags.iteration, "iteration", 0, "current iteration number")
	planCmd.Flags().StringArrayVar(&planFlags.prior, "prior", nil, "recent prior action (repeatable)")

	graphCmd.Flags().StringVar(&graphFlags.goal, "goal", "", "overall session goal")
	graphCmd.Flags().StringVar(&graphFlags.workingDir, "cwd", "", "working directory of the session")
	graphCmd.Flags().IntVar(&graphFlags.alternatives, "alternatives", 3, "alternatives requested per node")
	graphCmd.Flags().BoolVar(&graphFlags.pathsOnly, "paths-only", false, "print ranked paths without the tree")

	rootCmd.AddCommand(planCmd, graphCmd)
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/recovery"
	"github.com/sweetpotato0/ai-autopilot/reflection"
)

type recoverInput struct {
	Failure     reflection.Failure  `json:"failure"`
	Diagnosis   *recovery.Diagnosis `json:"diagnosis,omitempty"`
	WorkingDir  string              `json:"workingDir,omitempty"`
	SandboxRoot string              `json:"sandboxRoot,omitempty"`
	Attempts    int                 `json:"attempts,omitempty"`
}

type recoverOutput struct {
	Diagnosis *recovery.Diagnosis `json:"diagnosis"`
	Plan      *recovery.Plan      `json:"plan"`
}

var recoverFlags struct {
	input    string
	noMemory bool
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Produce a recovery plan for a failed tool call",
	Long: `Reads {"failure": {...}, "diagnosis": {...}} as JSON. When the diagnosis is
absent the failure is diagnosed first. Strategies are ranked with the
recovery history of past episodes unless --no-memory is set.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		var in recoverInput
		if err := readInput(recoverFlags.input, &in); err != nil {
			return err
		}
		in.Failure.Tools = a.tools

		d := in.Diagnosis
		if d == nil {
			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}
			d = engine.Diagnose(ctx, in.Failure)
		}
		if d == nil {
			d = &recovery.Diagnosis{RootCause: recovery.RootCause{
				Category:    recovery.ClassifyError(in.Failure.Error.Message),
				Description: in.Failure.Error.Message,
			}}
		}

		opts := []recovery.Option{}
		if !recoverFlags.noMemory {
			mem, err := a.memory(ctx)
			if err != nil {
				return err
			}
			opts = append(opts, recovery.WithPriors(mem))
		}
		plan := recovery.NewPlanner(opts...).GenerateRecoveryPlan(ctx, d, recovery.Context{
			Tools:        a.tools,
			FailedTool:   in.Failure.Tool,
			FailedArgs:   in.Failure.Args,
			ErrorMessage: in.Failure.Error.Message,
			WorkingDir:   in.WorkingDir,
			SandboxRoot:  in.SandboxRoot,
			Attempts:     in.Attempts,
		})
		return emit(recoverOutput{Diagnosis: d, Plan: plan})
	}),
}

func init() {
	recoverCmd.Flags().StringVarP(&recoverFlags.input, "input", "i", "-", "JSON input file, - for stdin")
	recoverCmd.Flags().BoolVar(&recoverFlags.noMemory, "no-memory", false, "ignore recovery history")
	rootCmd.AddCommand(recoverCmd)
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/outcome"
	"github.com/sweetpotato0/ai-autopilot/reflection"
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Record and query decision outcomes",
}

var recordFlags struct {
	task        string
	category    string
	alternative string
	kind        string
	score       float64
	iterations  int
	session     string
}

var outcomeRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record how a chosen alternative turned out",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		category := recordFlags.category
		if category == "" {
			if recordFlags.task == "" {
				return fmt.Errorf("either --category or --task is required")
			}
			category = outcome.CategorizeTask(recordFlags.task)
		}
		t, err := a.outcomes(ctx)
		if err != nil {
			return err
		}
		rec := &outcome.Record{
			TaskCategory:     category,
			AlternativeName:  recordFlags.alternative,
			Outcome:          outcome.Kind(strings.ToLower(recordFlags.kind)),
			OverallScore:     recordFlags.score,
			ActualIterations: recordFlags.iterations,
			SessionID:        recordFlags.session,
		}
		if err := t.RecordOutcome(ctx, rec); err != nil {
			return err
		}
		return emit(rec)
	}),
}

var queryFlags struct {
	category    string
	kind        string
	minScore    float64
	maxScore    float64
	session     string
	alternative string
	since       time.Duration
	limit       int
}

var outcomeQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List recorded outcomes",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		t, err := a.outcomes(ctx)
		if err != nil {
			return err
		}
		return emit(t.QueryOutcomes(ctx, queryFilter(time.Now())))
	}),
}

// queryFilter builds the filter from flags. The score bounds default to the
// full [0,1] range so they never exclude a valid record.
func queryFilter(now time.Time) outcome.Filter {
	f := outcome.Filter{
		TaskCategory:    queryFlags.category,
		Outcome:         outcome.Kind(strings.ToLower(queryFlags.kind)),
		MinScore:        &queryFlags.minScore,
		MaxScore:        &queryFlags.maxScore,
		SessionID:       queryFlags.session,
		AlternativeName: queryFlags.alternative,
		Limit:           queryFlags.limit,
	}
	if queryFlags.since > 0 {
		f.Since = now.Add(-queryFlags.since)
	}
	return f
}

var outcomeStatsCategory string

var outcomeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise outcomes and rank alternatives",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		t, err := a.outcomes(ctx)
		if err != nil {
			return err
		}
		return emit(struct {
			Stats        outcome.Stats             `json:"stats"`
			Alternatives []outcome.AlternativeRate `json:"alternatives"`
		}{t.Stats(ctx, outcomeStatsCategory), t.AlternativeSuccessRates(ctx, outcomeStatsCategory)})
	}),
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize <task>",
	Short: "Show how a task text is classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		task := strings.Join(args, " ")
		return emit(struct {
			TaskType        reflection.TaskType `json:"taskType"`
			OutcomeCategory string              `json:"outcomeCategory"`
		}{reflection.ClassifyTask(task), outcome.CategorizeTask(task)})
	},
}

func init() {
	f := outcomeRecordCmd.Flags()
	f.StringVar(&recordFlags.task, "task", "", "task text, categorised when --category is empty")
	f.StringVar(&recordFlags.category, "category", "", "task category")
	f.StringVar(&recordFlags.alternative, "alternative", "", "name of the chosen alternative")
	f.StringVar(&recordFlags.kind, "outcome", "", "success, failure or partial")
	f.Float64Var(&recordFlags.score, "score", 0, "overall score in [0,1]")
	f.IntVar(&recordFlags.iterations, "iterations", 0, "iterations actually spent")
	f.StringVar(&recordFlags.session, "session", "", "session id")
	_ = outcomeRecordCmd.MarkFlagRequired("outcome")

	q := outcomeQueryCmd.Flags()
	q.StringVar(&queryFlags.category, "category", "", "task category")
	q.StringVar(&queryFlags.kind, "outcome", "", "success, failure or partial")
	q.Float64Var(&queryFlags.minScore, "min-score", 0, "minimum score")
	q.Float64Var(&queryFlags.maxScore, "max-score", 1, "maximum score")
	q.StringVar(&queryFlags.session, "session", "", "session id")
	q.StringVar(&queryFlags.alternative, "alternative", "", "alternative name")
	q.DurationVar(&queryFlags.since, "since", 0, "only outcomes newer than this (e.g. 24h)")
	q.IntVarP(&queryFlags.limit, "limit", "n", 0, "keep only the most recent N")

	outcomeStatsCmd.Flags().StringVar(&outcomeStatsCategory, "category", "", "restrict to one task category")

	outcomesCmd.AddCommand(outcomeRecordCmd, outcomeQueryCmd, outcomeStatsCmd)
	rootCmd.AddCommand(outcomesCmd, categorizeCmd)
}

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/memory"
	"github.com/sweetpotato0/ai-autopilot/recovery"
)

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Record and search past sessions",
}

var episodeRecordInput string

var episodeRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Store a finished session as an episode",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		var result memory.SessionResult
		if err := readInput(episodeRecordInput, &result); err != nil {
			return err
		}
		mem, err := a.memory(ctx)
		if err != nil {
			return err
		}
		ep, err := mem.RecordEpisode(ctx, result)
		if err != nil {
			return err
		}
		out := *ep
		out.Embedding = nil
		return emit(out)
	}),
}

var searchFlags struct {
	limit       int
	minScore    float64
	successOnly bool
	taskType    string
}

var episodeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find episodes similar to a task description",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		mem, err := a.memory(ctx)
		if err != nil {
			return err
		}
		results := mem.SearchSimilar(ctx, strings.Join(args, " "), memory.SearchOptions{
			Limit:       searchFlags.limit,
			MinScore:    searchFlags.minScore,
			SuccessOnly: searchFlags.successOnly,
			TaskType:    searchFlags.taskType,
		})
		for i := range results {
			results[i].Episode.Embedding = nil
		}
		return emit(results)
	}),
}

var statsPatterns int

var episodeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise error categories and recovery patterns",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		mem, err := a.memory(ctx)
		if err != nil {
			return err
		}
		return emit(struct {
			Episodes   int                                           `json:"episodes"`
			Categories map[recovery.Category]*memory.CategoryStats `json:"categories"`
			Patterns   []memory.ErrorPattern                         `json:"patterns"`
		}{mem.Count(), mem.ErrorCategoryStats(), mem.CommonErrorPatterns(statsPatterns)})
	}),
}

func init() {
	episodeRecordCmd.Flags().StringVarP(&episodeRecordInput, "input", "i", "-", "JSON session result, - for stdin")

	episodeSearchCmd.Flags().IntVarP(&searchFlags.limit, "limit", "n", 5, "maximum results")
	episodeSearchCmd.Flags().Float64Var(&searchFlags.minScore, "min-score", 0, "minimum cosine similarity")
	episodeSearchCmd.Flags().BoolVar(&searchFlags.successOnly, "success-only", false, "only successful sessions")
	episodeSearchCmd.Flags().StringVar(&searchFlags.taskType, "task-type", "", "only sessions of this task type")

	episodeStatsCmd.Flags().IntVar(&statsPatterns, "patterns", 5, "number of error patterns to show")

	episodesCmd.AddCommand(episodeRecordCmd, episodeSearchCmd, episodeStatsCmd)
	rootCmd.AddCommand(episodesCmd)
}

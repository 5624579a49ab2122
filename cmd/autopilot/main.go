// Command autopilot exposes the decision core of the agent: reflection,
// planning, recovery, lookahead search, episodic memory and outcome
// tracking.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	output      string
	mcpCommand  string
	mcpEndpoint string
	mcpPrefix   string
)

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Decision core for an autonomous coding agent",
	Long: `autopilot runs the decision steps of an agent loop one at a time.

Decisions:
  reflect      Assess progress and choose the next action
  plan         Turn a high-level action into concrete tool steps
  diagnose     Explain a failed tool call
  recover      Diagnose a failure and produce a recovery plan
  graph        Explore alternative approaches a few steps ahead

Learning:
  episodes     Record and search past sessions
  outcomes     Record and query decision outcomes
  categorize   Show how a task text is classified`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("AUTOPILOT_CONFIG"), "config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	rootCmd.PersistentFlags().StringVar(&mcpCommand, "mcp-command", "", "load extra tools from an MCP server started with this command")
	rootCmd.PersistentFlags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "load extra tools from a streamable HTTP MCP server")
	rootCmd.PersistentFlags().StringVar(&mcpPrefix, "mcp-prefix", "", "namespace MCP tool names as <prefix>__<name>")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

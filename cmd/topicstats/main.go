// Package main provides the entry point for the topicstats CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/topicstats/cmd/topicstats/commands"
	"github.com/Sumatoshi-tech/topicstats/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "topicstats",
		Short: "Topicstats - message activity statistics for dashboards",
		Long: `Topicstats aggregates an exported message log and per-topic metadata
into the data payload of an activity dashboard.

Commands:
  build     Aggregate the event log into dashboard data
  validate  Check a report against the schema and its consistency rules
  diff      Compare two reports`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP(commands.FlagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(commands.FlagQuiet, "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDiffCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "topicstats %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

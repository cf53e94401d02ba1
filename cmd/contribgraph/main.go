// Package main provides the entry point for the contribgraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/cmd/contribgraph/commands"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contribgraph",
		Short: "Aggregate per-project commit reports into a contribution calendar",
		Long: `contribgraph reads contributions_report_<project>.csv files, merges them into
one record per day and presents the result as a calendar heatmap and a yearly
per-project report.

Configuration is read from the environment (and a .env file when present).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "contribgraph %s (commit: %s)\n", version, commit)
		},
	}
}

package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/internal/report"
)

// NewBuildCommand creates the build subcommand: one aggregation run that
// writes the artifact and feeds the configured sinks.
func NewBuildCommand() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate the CSV reports and write the contributions artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, o, false, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.result.Service.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Read %d %s from %s (%d failed) in %s\n",
				res.FilesRead, plural(res.FilesRead, "file", "files"), res.Source, res.FilesFailed,
				res.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "Wrote %s commits over %s days to %s\n",
				humanize.Comma(int64(res.Total)), humanize.Comma(int64(res.Days)), s.cfg.ArtifactPath)
			for _, name := range res.Failed {
				fmt.Fprintf(os.Stderr, "skipped: %s\n", name)
			}

			agg, err := s.result.Backend.Snapshot(ctx)
			if err != nil {
				return err
			}
			return report.WriteYears(out, agg)
		},
	}

	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "read CSV files from this directory instead of CSV_DIR")
	cmd.Flags().StringVarP(&o.artifact, "out", "o", "", "artifact path (default ARTIFACT_PATH)")

	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

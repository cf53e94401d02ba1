package commands

import (
	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/report"
)

// NewReportCommand creates the report subcommand.
func NewReportCommand() *cobra.Command {
	var (
		o      overrides
		year   int
		format string
		fresh  bool
		years  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the per-project commit totals of each year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, o, false, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			agg, err := s.aggregate(ctx, fresh)
			if err != nil {
				return err
			}
			if years {
				return report.WriteYears(cmd.OutOrStdout(), agg)
			}
			return report.WriteTable(cmd.OutOrStdout(), filterYear(core.BuildReport(agg), year), f)
		},
	}

	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "read CSV files from this directory instead of CSV_DIR")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "only report this year")
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable), "output format: table, markdown or csv")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "re-read the CSV files even when a snapshot is stored")
	cmd.Flags().BoolVar(&years, "years", false, "print one line per year instead of the project tables")

	return cmd
}

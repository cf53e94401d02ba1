package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/internal/chart"
)

const renderDirPerm = 0o750

// NewRenderCommand creates the render subcommand: a standalone HTML page
// with one heatmap per year.
func NewRenderCommand() *cobra.Command {
	var (
		o      overrides
		output string
		year   int
		fresh  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the contribution calendars as an HTML page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			if err := os.MkdirAll(filepath.Dir(output), renderDirPerm); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}

			if year != 0 {
				err = chart.RenderYear(f, year, agg)
			} else {
				err = chart.RenderPage(f, agg)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "read CSV files from this directory instead of CSV_DIR")
	cmd.Flags().StringVarP(&output, "output", "o", "contributions.html", "output HTML file")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "render only this year")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "re-read the CSV files even when a snapshot is stored")

	return cmd
}

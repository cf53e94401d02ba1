package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/gsheets"
)

// ErrNoSpreadsheet is returned when export is called without a target sheet.
var ErrNoSpreadsheet = errors.New("GOOGLE_SPREADSHEET_ID is required for export")

// NewExportCommand creates the export subcommand: the yearly report is
// written to a Google Sheets tab.
func NewExportCommand() *cobra.Command {
	var (
		o     overrides
		year  int
		fresh bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the yearly report to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, o, false, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.cfg.GoogleSpreadsheetID == "" {
				return ErrNoSpreadsheet
			}
			creds, err := s.cfg.SheetsCredentials()
			if err != nil {
				return err
			}
			client, err := gsheets.New(ctx, s.cfg.GoogleSpreadsheetID, s.cfg.GoogleSheetName, creds)
			if err != nil {
				return err
			}

			agg, err := s.aggregate(ctx, fresh)
			if err != nil {
				return err
			}
			summaries := filterYear(core.BuildReport(agg), year)
			if err := client.ExportReport(ctx, summaries); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s to sheet %q\n",
				len(summaries), plural(len(summaries), "year", "years"), s.cfg.GoogleSheetName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "read CSV files from this directory instead of CSV_DIR")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "only export this year")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "re-read the CSV files even when a snapshot is stored")

	return cmd
}

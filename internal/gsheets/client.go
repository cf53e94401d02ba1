package gsheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// Client writes the yearly report to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.ReportExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Contributions"
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        log.Default(log.ComponentSheets),
	}, nil
}

// ExportReport replaces the sheet content with the report rows.
func (c *Client) ExportReport(ctx context.Context, summaries []core.YearSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheet := quoteSheet(c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet+"!A:D", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	values := ReportValues(summaries)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Report exported",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		log.FieldRows, len(values)-1)
	return nil
}

package gsheets

import (
	"context"
	"testing"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

func TestReportValues(t *testing.T) {
	summaries := []core.YearSummary{
		{Year: 2024, Total: 4, Projects: []core.ProjectTotal{{Name: "WEB", Count: 4}, {Name: "API", Count: 3}}},
		{Year: 2023, Total: 0, Projects: []core.ProjectTotal{}},
	}

	values := ReportValues(summaries)
	if len(values) != 5 {
		t.Fatalf("rows: got %d, want 5", len(values))
	}
	if values[0][0] != "Year" || values[0][2] != "Commits" {
		t.Fatalf("unexpected header %v", values[0])
	}
	if values[1][1] != TotalLabel || values[1][2] != 4 {
		t.Fatalf("unexpected total row %v", values[1])
	}
	if values[2][1] != "WEB" || values[2][3] != "100.0%" {
		t.Fatalf("unexpected WEB row %v", values[2])
	}
	if values[3][3] != "75.0%" {
		t.Fatalf("API share got %v", values[3][3])
	}
	if values[4][0] != 2023 || values[4][3] != "" {
		t.Fatalf("unexpected empty-year row %v", values[4])
	}
}

func TestReportValuesEmpty(t *testing.T) {
	values := ReportValues(nil)
	if len(values) != 1 {
		t.Fatalf("expected header only, got %v", values)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Contributions": "'Contributions'",
		"My Report":     "'My Report'",
		"Bob's":         "'Bob''s'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewValidatesInput(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, "", "Sheet", []byte("{}")); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := New(ctx, "abc", "Sheet", nil); err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestExportReportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "abc", sheetName: "Contributions"}
	if err := c.ExportReport(context.Background(), nil); err == nil {
		t.Error("expected error when service is not initialized")
	}
}

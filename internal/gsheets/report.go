package gsheets

import (
	"fmt"
	"strings"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// TotalLabel marks the per-year total row.
const TotalLabel = "TOTAL"

var reportHeader = []any{"Year", "Project", "Commits", "Share"}

// ReportValues lays the summaries out as sheet rows: a header, then for each
// year a total row followed by one row per project. Share is the project's
// count relative to the year total; a day shared by several projects counts
// for each of them, so shares of one year can add up to more than 100%.
func ReportValues(summaries []core.YearSummary) [][]any {
	values := [][]any{reportHeader}
	for _, s := range summaries {
		values = append(values, []any{s.Year, TotalLabel, s.Total, ""})
		for _, p := range s.Projects {
			values = append(values, []any{s.Year, p.Name, p.Count, share(p.Count, s.Total)})
		}
	}
	return values
}

func share(count, total int) string {
	if total <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}

// quoteSheet quotes a sheet name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

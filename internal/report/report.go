// Package report prints yearly contribution summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// Format selects how tables are rendered.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatMarkdown, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q: must be one of table, markdown, csv", s)
	}
}

const msgNoContributions = "No contributions found."

// WriteTable writes one table per summary in the order given.
func WriteTable(w io.Writer, summaries []core.YearSummary, format Format) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, msgNoContributions)
		return err
	}
	for i, s := range summaries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, render(yearTable(s), format)); err != nil {
			return err
		}
	}
	return nil
}

func yearTable(s core.YearSummary) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(strconv.Itoa(s.Year))
	tbl.AppendHeader(table.Row{"#", "Project", "Commits", "Share"})
	for i, p := range s.Projects {
		tbl.AppendRow(table.Row{i + 1, p.Name, humanize.Comma(int64(p.Count)), share(p.Count, s.Total)})
	}
	tbl.AppendFooter(table.Row{"", "Total", humanize.Comma(int64(s.Total)), ""})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tbl
}

func render(tbl table.Writer, format Format) string {
	switch format {
	case FormatMarkdown:
		return tbl.RenderMarkdown()
	case FormatCSV:
		return tbl.RenderCSV()
	default:
		return tbl.Render()
	}
}

// share formats count as a percentage of total. Projects of a shared day
// are all credited, so shares may add up to more than 100%.
func share(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
}

// WriteYears prints the years present in agg with their totals, newest first.
func WriteYears(w io.Writer, agg core.Aggregate) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Year", "Commits", "Active days"})
	days := make(map[int]int)
	for _, rec := range agg.Records() {
		if y, ok := core.Year(rec.Date); ok {
			days[y]++
		}
	}
	for _, year := range agg.Years() {
		s := core.BuildYearSummary(year, agg)
		tbl.AppendRow(table.Row{year, humanize.Comma(int64(s.Total)), days[year]})
	}
	if undated := agg.Undated(); len(undated) > 0 {
		tbl.AppendFooter(table.Row{"undated", "", len(undated)})
	}
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

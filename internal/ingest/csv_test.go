package ingest

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

func producerCSV(lines ...string) string {
	return strings.Join(append([]string{strings.Join(ProducerColumns, ",")}, lines...), "\n") + "\n"
}

func TestParseCSVProducerFormat(t *testing.T) {
	in := producerCSV(
		`2024-03-01,2024-03-01 10:00:00,Ada,ada@example.com,abc123,"fix: handle a, b",10,2`,
		`2024-03-02,2024-03-02 11:00:00,Ada,ada@example.com,def456,docs,1,0`,
	)

	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-01", rows[0].Date())
	assert.Equal(t, "fix: handle a, b", rows[0]["Subject"])
	assert.Equal(t, "def456", rows[1]["Hash"])
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Date,Hash\n\n2024-01-01,a\n\n\n2024-01-02,b\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseCSVStripsBOMAndHeaderSpace(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("\ufeff Date ,Hash\n2024-01-01,a\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-01", rows[0].Date())
}

func TestParseCSVEmptyInput(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ParseCSV(strings.NewReader("Date,Hash\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseCSVColumnMismatch(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Date,Hash,Subject\n2024-01-01,a\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, csv.ErrFieldCount)
}

func TestParseCSVUnterminatedQuote(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Date,Subject\n2024-01-01,\"never closed\n"))
	assert.Error(t, err)
}

func TestParseCSVWithoutDateColumn(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Hash\nabc\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Date())

	agg := core.AggregateFiles([]core.File{{Name: "x.csv", Rows: rows}})
	assert.Zero(t, agg.Len())
}

func TestSelect(t *testing.T) {
	got := Select([]string{
		"contributions_report_b.csv",
		"notes.txt",
		"contributions_report_a.csv",
		"weird:name.csv",
		"archive.csv.bak",
		"UPPER.CSV",
	})
	assert.Equal(t, []string{"contributions_report_a.csv", "contributions_report_b.csv"}, got)
	assert.Empty(t, Select(nil))
}

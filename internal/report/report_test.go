package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

func sampleReport() []core.YearSummary {
	return []core.YearSummary{
		{Year: 2024, Total: 1500, Projects: []core.ProjectTotal{{Name: "ALPHA", Count: 1200}, {Name: "BETA", Count: 400}}},
		{Year: 2023, Total: 2, Projects: []core.ProjectTotal{{Name: "BETA", Count: 2}}},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleReport(), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "ALPHA")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "80.0%")
	assert.Less(t, strings.Index(out, "2024"), strings.Index(out, "2023"))
}

func TestWriteTableFormats(t *testing.T) {
	var md bytes.Buffer
	require.NoError(t, WriteTable(&md, sampleReport()[1:], FormatMarkdown))
	assert.Contains(t, md.String(), "BETA")
	assert.Contains(t, md.String(), "|")

	var csv bytes.Buffer
	require.NoError(t, WriteTable(&csv, sampleReport()[1:], FormatCSV))
	assert.Contains(t, csv.String(), "BETA,2,100.0%")
}

func TestWriteTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, nil, FormatTable))
	assert.Equal(t, msgNoContributions+"\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "markdown": FormatMarkdown, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestShare(t *testing.T) {
	assert.Equal(t, "0.0%", share(5, 0))
	assert.Equal(t, "33.3%", share(1, 3))
	assert.Equal(t, "150.0%", share(3, 2))
}

func TestWriteYears(t *testing.T) {
	agg := core.FromRecords([]core.ContributionRecord{
		{Date: "2024-01-01", Count: 2, Projects: []string{"A"}},
		{Date: "2024-02-01", Count: 1, Projects: []string{"A"}},
		{Date: "garbage", Count: 1, Projects: []string{"A"}},
	})
	var buf bytes.Buffer
	require.NoError(t, WriteYears(&buf, agg))
	assert.Contains(t, buf.String(), "2024")
	assert.Contains(t, strings.ToUpper(buf.String()), "UNDATED")
}

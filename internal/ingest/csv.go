package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// ProducerColumns is the header written by the commit extractor. Only
// core.DateColumn is read; the rest are carried along in each Row.
var ProducerColumns = []string{
	core.DateColumn, "Timestamp", "Author", "Email", "Hash", "Subject", "Additions", "Deletions",
}

// ParseCSV reads a header row followed by records. Every record must have
// as many fields as the header. Blank lines are skipped. An empty input
// yields no rows.
func ParseCSV(r io.Reader) ([]core.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []core.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]core.Row, 0, 64)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row := make(core.Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

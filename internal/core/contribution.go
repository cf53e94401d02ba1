package core

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DateColumn is the only CSV column the aggregation reads.
const DateColumn = "Date"

const reportPrefix = "contributions_report_"

var reportName = regexp.MustCompile(`^` + reportPrefix + `(.+)\.[^.]+$`)

type (
	// Row is one CSV record keyed by header name. Unknown columns are carried
	// along untouched.
	Row map[string]string

	// File is the parsed content of a single input file.
	File struct {
		Name string
		Rows []Row
	}

	// ContributionRecord is the aggregate for one calendar date.
	ContributionRecord struct {
		Date     string   `json:"date"`
		Count    int      `json:"count"`
		Projects []string `json:"projects"`
	}

	// Level is the heatmap intensity bucket of a day.
	Level int
)

const (
	Level0 Level = iota
	Level1
	Level2
	Level3
	Level4
)

// Date returns the trimmed value of the Date column, or "" when absent.
func (r Row) Date() string {
	return strings.TrimSpace(r[DateColumn])
}

// ProjectName derives the project a file belongs to from its base name.
// contributions_report_<token>.<ext> yields the upper-cased token; any other
// name yields the base name without its extension.
func ProjectName(filename string) string {
	base := filepath.Base(filename)
	if m := reportName.FindStringSubmatch(base); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LevelFor buckets a commit count: 0, 1-2, 3-5, 6-10, 11+.
func LevelFor(count int) Level {
	switch {
	case count <= 0:
		return Level0
	case count <= 2:
		return Level1
	case count <= 5:
		return Level2
	case count <= 10:
		return Level3
	default:
		return Level4
	}
}

// String returns the CSS-friendly name of the level.
func (l Level) String() string {
	switch l {
	case Level1:
		return "level-1"
	case Level2:
		return "level-2"
	case Level3:
		return "level-3"
	case Level4:
		return "level-4"
	default:
		return "level-0"
	}
}

// Year returns the 4-digit year prefix of a date key.
func Year(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	y := 0
	for i := 0; i < 4; i++ {
		c := date[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		y = y*10 + int(c-'0')
	}
	return y, true
}

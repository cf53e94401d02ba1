package core

import "time"

// DateLayout is the on-disk and on-wire form of a calendar date.
const DateLayout = "2006-01-02"

// DaysPerWeek is the height of a heatmap column.
const DaysPerWeek = 7

// spilloverDays is how far into the next January a year's grid extends.
const spilloverDays = 7

type (
	// DayCell is one square of the heatmap.
	DayCell struct {
		Date     string   `json:"date"`
		Count    int      `json:"count"`
		Level    Level    `json:"level"`
		Projects []string `json:"projects"`
	}

	// Week is one column of the heatmap, Monday first. Only the last week of
	// a year may hold fewer than seven days.
	Week []DayCell
)

// GridBounds returns the half-open date range [start, end) covered by the
// grid of year: from the Monday on or before January 1 through January 7 of
// the following year.
func GridBounds(year int) (start, end time.Time) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	back := (int(jan1.Weekday()) - int(time.Monday) + DaysPerWeek) % DaysPerWeek
	start = jan1.AddDate(0, 0, -back)
	end = time.Date(year+1, time.January, spilloverDays+1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// BuildYear lays out the heatmap grid for year. Dates missing from agg are
// zero-filled.
func BuildYear(year int, agg Aggregate) []Week {
	start, end := GridBounds(year)
	days := int(end.Sub(start).Hours() / 24)

	weeks := make([]Week, 0, days/DaysPerWeek+1)
	current := make(Week, 0, DaysPerWeek)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(DateLayout)
		cell := DayCell{Date: day, Projects: []string{}}
		if rec, ok := agg.records[day]; ok {
			cell.Count = rec.Count
			cell.Projects = append(cell.Projects, rec.Projects...)
		}
		cell.Level = LevelFor(cell.Count)
		current = append(current, cell)

		if len(current) == DaysPerWeek {
			weeks = append(weeks, current)
			current = make(Week, 0, DaysPerWeek)
		}
	}
	if len(current) > 0 {
		weeks = append(weeks, current)
	}
	return weeks
}

// MaxCount returns the largest count in weeks.
func MaxCount(weeks []Week) int {
	m := 0
	for _, w := range weeks {
		for _, d := range w {
			if d.Count > m {
				m = d.Count
			}
		}
	}
	return m
}

package core

import "sort"

// ProjectTotal is a commit count attributed to one project.
type ProjectTotal struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// YearSummary is the per-project breakdown of one calendar year.
//
// A day touched by several projects is credited in full to each of them, so
// the sum of Projects may exceed Total.
type YearSummary struct {
	Year     int            `json:"year"`
	Total    int            `json:"total"`
	Projects []ProjectTotal `json:"projects"`
}

// BuildYearSummary totals the records of agg whose date falls in year.
func BuildYearSummary(year int, agg Aggregate) YearSummary {
	sum := YearSummary{Year: year, Projects: []ProjectTotal{}}
	byProject := make(map[string]int)
	for date, rec := range agg.records {
		y, ok := Year(date)
		if !ok || y != year {
			continue
		}
		sum.Total += rec.Count
		for _, p := range rec.Projects {
			byProject[p] += rec.Count
		}
	}
	for name, count := range byProject {
		sum.Projects = append(sum.Projects, ProjectTotal{Name: name, Count: count})
	}
	sort.Slice(sum.Projects, func(i, j int) bool {
		if sum.Projects[i].Count != sum.Projects[j].Count {
			return sum.Projects[i].Count > sum.Projects[j].Count
		}
		return sum.Projects[i].Name < sum.Projects[j].Name
	})
	return sum
}

// BuildReport returns one summary per year in agg, newest year first.
func BuildReport(agg Aggregate) []YearSummary {
	years := agg.Years()
	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		out = append(out, BuildYearSummary(y, agg))
	}
	return out
}

// ProjectCount returns the total attributed to name, or 0.
func (s YearSummary) ProjectCount(name string) int {
	for _, p := range s.Projects {
		if p.Name == name {
			return p.Count
		}
	}
	return 0
}

// Package chart renders contribution calendars as go-echarts heatmaps.
package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

const (
	chartHeight   = "260px"
	chartWidth    = "1100px"
	labelFontSize = 10
	pageTitle     = "Contributions"
)

// Palette holds one colour per core.Level, lightest first.
var Palette = []string{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"}

// Weekdays labels the y axis; weeks start on Monday.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// YearChart builds the heatmap of one year: x is the week index, y the
// weekday and the value the commit count of the day. Cells are coloured by
// core.Level, the same buckets the dashboard uses.
func YearChart(year int, weeks []core.Week) *charts.HeatMap {
	data, busiest := heatMapData(weeks)

	xLabels := make([]string, len(weeks))
	for i := range weeks {
		xLabels[i] = strconv.Itoa(i + 1)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    strconv.Itoa(year),
			Subtitle: fmt.Sprintf("%d contributions, busiest day %d", totalOf(weeks), busiest),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: pageTitle,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			Data:      xLabels,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
			AxisLabel: &opts.AxisLabel{FontSize: labelFontSize},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      Weekdays,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
			AxisLabel: &opts.AxisLabel{FontSize: labelFontSize},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:   "piecewise",
			Pieces: LevelPieces(),
			Orient: "horizontal",
			Left:   "center",
			Bottom: "2%",
		}),
	)
	hm.AddSeries("Commits", data)

	return hm
}

// LevelPieces returns one visual map piece per core.Level, coloured from
// Palette. Bounds come from core.LevelFor; the top level is open-ended.
func LevelPieces() []opts.Piece {
	pieces := make([]opts.Piece, 0, len(Palette))
	lo := 0
	for n := 0; ; n++ {
		level := core.LevelFor(n)
		if level == core.Level4 {
			pieces = append(pieces, opts.Piece{Gte: float32(n), Color: Palette[level]})
			return pieces
		}
		if core.LevelFor(n+1) == level {
			continue
		}
		// Zero bounds are dropped when encoded, so the first piece is
		// expressed as an exclusive upper bound.
		p := opts.Piece{Gte: float32(lo), Lte: float32(n), Color: Palette[level]}
		if lo == 0 {
			p = opts.Piece{Lt: float32(n + 1), Color: Palette[level]}
		}
		pieces = append(pieces, p)
		lo = n + 1
	}
}

// heatMapData turns the weeks into [week, weekday, count] triples. Cells of
// the trailing partial week that do not exist are not emitted.
func heatMapData(weeks []core.Week) (data []opts.HeatMapData, maxCount int) {
	data = make([]opts.HeatMapData, 0, len(weeks)*core.DaysPerWeek)
	for x, week := range weeks {
		for y, day := range week {
			data = append(data, opts.HeatMapData{
				Name:  day.Date,
				Value: []any{x, y, day.Count},
			})
			if day.Count > maxCount {
				maxCount = day.Count
			}
		}
	}
	return data, maxCount
}

func totalOf(weeks []core.Week) int {
	total := 0
	for _, week := range weeks {
		for _, day := range week {
			total += day.Count
		}
	}
	return total
}

// Page builds one chart per year of agg, newest first.
func Page(agg core.Aggregate) *components.Page {
	page := components.NewPage()
	page.PageTitle = pageTitle
	for _, year := range agg.Years() {
		page.AddCharts(YearChart(year, core.BuildYear(year, agg)))
	}
	return page
}

// RenderPage writes the chart page of agg as a standalone HTML document.
func RenderPage(w io.Writer, agg core.Aggregate) error {
	if err := Page(agg).Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

// RenderYear writes the chart of a single year.
func RenderYear(w io.Writer, year int, agg core.Aggregate) error {
	if err := YearChart(year, core.BuildYear(year, agg)).Render(w); err != nil {
		return fmt.Errorf("render chart %d: %w", year, err)
	}
	return nil
}

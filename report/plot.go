package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoSeries = errors.New("report: no series to plot")

// Series is one named reward trace.
type Series struct {
	Name  string
	Trace []float64
}

// PlotRewardTrace renders the traces as one HTML line chart. The x axis is the
// pass number starting at 1 and spans the longest trace.
func PlotRewardTrace(w io.Writer, title string, series ...Series) error {
	if len(series) == 0 {
		return ErrNoSeries
	}

	passes := 0
	for _, s := range series {
		passes = max(passes, len(s.Trace))
	}
	xs := make([]string, passes)
	for i := range xs {
		xs[i] = strconv.Itoa(i + 1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "pass"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reward"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	line.SetXAxis(xs)
	for _, s := range series {
		items := make([]opts.LineData, len(s.Trace))
		for i, r := range s.Trace {
			items[i] = opts.LineData{Value: r}
		}
		line.AddSeries(s.Name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}

package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
)

// DefaultBins is the histogram bin count.
const DefaultBins = 20

// Bin is one histogram bar covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Bins splits values into n equal-width bins spanning their range. The last
// bin includes the maximum. A constant series lands in a single bin.
func Bins(values []float64, n int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if n <= 0 {
		n = DefaultBins
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + width*float64(i)
		bins[i].Hi = lo + width*float64(i+1)
	}
	bins[n-1].Hi = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

// Histogram writes an interactive bar chart of values binned n ways.
func Histogram(w io.Writer, variable string, values []float64, n int) error {
	if len(values) == 0 {
		return eris.Errorf("render: no values to plot for %s", variable)
	}

	bins := Bins(values, n)
	labels := make([]string, 0, len(bins))
	data := make([]opts.BarData, 0, len(bins))
	for _, b := range bins {
		labels = append(labels, fmt.Sprintf("%s to %s", formatValue(b.Lo), formatValue(b.Hi)))
		data = append(data, opts.BarData{Value: b.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Distribution of " + variable, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distribution of " + variable}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: variable, NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(labels).
		AddSeries(variable, data,
			charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "1%"}),
		)

	if err := bar.Render(w); err != nil {
		return eris.Wrap(err, "render: histogram")
	}
	return nil
}

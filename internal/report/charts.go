package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Montcharles/germitrack/pkg/types"
)

const (
	chartWidth  = 960
	chartHeight = 540
)

// palette cycles across replicate curves.
var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
}

var envelopeGray = drawing.ColorFromHex("7f7f7f")

// RenderCharts writes the four chart panels for one treatment into dir and
// returns the paths written. With fewer than two day rows there is nothing
// to draw a line through, so charts are skipped with a warning; the data
// tables still carry the values.
func RenderCharts(dir, treatment string, cs *types.CurveSet, maxReplicates int) ([]string, error) {
	if len(cs.Days) < 2 {
		slog.Warn("skipping charts: need at least two day rows",
			"treatment", treatment, "days", len(cs.Days))
		return nil, nil
	}
	if maxReplicates < 1 {
		maxReplicates = 6
	}

	base := filepath.Join(dir, "GermiTrack_Charts_"+fileSafe(treatment))
	panels := []struct {
		path   string
		title  string
		series []chart.Series
	}{
		{
			path:   base + "_cumulative.png",
			title:  treatment + ": cumulative germination",
			series: replicateSeries(cs.Days, cs.Cumulative, maxReplicates),
		},
		{
			path:   base + "_cumulative_mean.png",
			title:  treatment + ": mean cumulative germination",
			series: meanSeries(cs.Days, cs.MeanCumulative, cs.StdCumulative),
		},
		{
			path:   base + "_daily.png",
			title:  treatment + ": daily germination",
			series: replicateSeries(cs.Days, cs.Daily, maxReplicates),
		},
		{
			path:   base + "_daily_mean.png",
			title:  treatment + ": mean daily germination",
			series: meanSeries(cs.Days, cs.MeanDaily, cs.StdDaily),
		},
	}

	written := make([]string, 0, len(panels))
	for _, p := range panels {
		if err := renderLineChart(p.path, p.title, p.series); err != nil {
			return written, err
		}
		written = append(written, p.path)
	}
	return written, nil
}

// replicateSeries draws one line per replicate, capped so dense trials stay
// readable.
func replicateSeries(days []float64, reps []types.ReplicateSeries, limit int) []chart.Series {
	if len(reps) > limit {
		reps = reps[:limit]
	}
	out := make([]chart.Series, 0, len(reps))
	for i, r := range reps {
		out = append(out, chart.ContinuousSeries{
			Name:    r.ID,
			XValues: days,
			YValues: r.Counts,
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: palette[i%len(palette)],
			},
		})
	}
	return out
}

// meanSeries draws the mean curve with a dashed one-standard-deviation
// envelope.
func meanSeries(days, mean, std []float64) []chart.Series {
	upper := make([]float64, len(mean))
	lower := make([]float64, len(mean))
	for i := range mean {
		upper[i] = mean[i] + std[i]
		lower[i] = mean[i] - std[i]
	}
	envelope := chart.Style{
		StrokeWidth:     1.5,
		StrokeColor:     envelopeGray,
		StrokeDashArray: []float64{4, 3},
	}
	return []chart.Series{
		chart.ContinuousSeries{
			Name:    "Mean",
			XValues: days,
			YValues: mean,
			Style:   chart.Style{StrokeWidth: 2.5, StrokeColor: palette[0]},
		},
		chart.ContinuousSeries{Name: "+1 SD", XValues: days, YValues: upper, Style: envelope},
		chart.ContinuousSeries{Name: "-1 SD", XValues: days, YValues: lower, Style: envelope},
	}
}

func renderLineChart(path, title string, series []chart.Series) error {
	ch := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: "Day"},
		YAxis:  chart.YAxis{Name: "Seeds"},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create chart: %w", err)
	}
	if err := ch.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("report: render %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close chart %s: %w", filepath.Base(path), err)
	}
	return nil
}

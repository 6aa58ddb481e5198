// Package report renders a lap comparison as a self-contained HTML page of
// ECharts plots: the delta curve, per-sector deltas, and the shared channel
// overlays.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/apexline-data/delta.report/internal/compare"
	"github.com/apexline-data/delta.report/internal/telemetry"
)

// WriteHTML renders the comparison result as an HTML document.
func WriteHTML(w io.Writer, res *compare.Result) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Lap %d vs lap %d", res.Compared.Index, res.Reference.Index)

	page.AddCharts(deltaChart(res))
	if len(res.Sectors) > 0 {
		page.AddCharts(sectorChart(res))
	}
	for _, pair := range ChannelOrder(res.Channels) {
		page.AddCharts(channelChart(res, pair))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

// deltaChart plots the cumulative time delta over distance. Zones of
// sustained time loss are annotated in the subtitle.
func deltaChart(res *compare.Result) *charts.Line {
	line := charts.NewLine()

	subtitle := fmt.Sprintf("final delta %+.3f s", res.Delta[len(res.Delta)-1])
	for _, z := range res.Zones {
		subtitle += fmt.Sprintf(" | losing %.3f s over %.0f-%.0f m", z.TimeLoss, z.StartDist, z.EndDist)
		if z.DominantChannel != "" {
			subtitle += " (" + z.DominantChannel + ")"
		}
	}

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Time delta: lap %d vs lap %d", res.Compared.Index, res.Reference.Index),
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "delta (s)"}),
	)

	line.SetXAxis(axisLabels(res.Distance)).
		AddSeries("delta", lineData(res.Delta))
	return line
}

// sectorChart plots the per-sector time delta as bars.
func sectorChart(res *compare.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Sector deltas"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "delta (s)"}),
	)

	labels := make([]string, len(res.Sectors))
	data := make([]opts.BarData, len(res.Sectors))
	for i, sec := range res.Sectors {
		labels[i] = fmt.Sprintf("S%d", sec.Index)
		if sec.Approximate {
			labels[i] += "*"
		}
		data[i] = opts.BarData{Value: round3(sec.Delta)}
	}
	bar.SetXAxis(labels).AddSeries("sector delta", data)
	return bar
}

// channelChart overlays one shared channel for both laps.
func channelChart(res *compare.Result, pair compare.ChannelPair) *charts.Line {
	refName := fmt.Sprintf("lap %d", res.Reference.Index)
	cmpName := fmt.Sprintf("lap %d", res.Compared.Index)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: pair.Name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
	)
	line.SetXAxis(axisLabels(res.Distance)).
		AddSeries(refName, lineData(pair.Ref)).
		AddSeries(cmpName, lineData(pair.Cmp))
	return line
}

func axisLabels(dist []float64) []string {
	out := make([]string, len(dist))
	for i, d := range dist {
		out[i] = fmt.Sprintf("%.0f", d)
	}
	return out
}

// lineData maps samples to chart points. ECharts has no NaN; missing
// samples become the "-" placeholder, which breaks the line.
func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = opts.LineData{Value: "-"}
			continue
		}
		out[i] = opts.LineData{Value: round3(v)}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ChannelOrder sorts channel pairs so the driver-input overlays come first
// in the rendered page.
func ChannelOrder(pairs []compare.ChannelPair) []compare.ChannelPair {
	ranked := make([]compare.ChannelPair, 0, len(pairs))
	rest := make([]compare.ChannelPair, 0, len(pairs))
	for _, p := range pairs {
		if role, ok := telemetry.MatchRole(p.Name); ok &&
			(role == telemetry.RoleSpeed || role == telemetry.RoleThrottle || role == telemetry.RoleBrake || role == telemetry.RoleSteering) {
			ranked = append(ranked, p)
			continue
		}
		rest = append(rest, p)
	}
	return append(ranked, rest...)
}

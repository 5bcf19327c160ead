package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/softcomp"
)

// Histogram counts HCAL hits per quantised density.
type Histogram struct {
	Midpoints []float64
	Counts    []int
	// Skipped counts hits whose density could not be computed.
	Skipped int
}

// Total returns the number of binned hits.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// DensityHistogram bins the HCAL hits by the model's density binning. The
// last entry is the saturation bin.
func DensityHistogram(m *softcomp.Model, hits []*calo.CaloHit) Histogram {
	b := m.Binning()
	mids := b.Midpoints()
	index := make(map[float64]int, len(mids))
	for i, v := range mids {
		index[v] = i
	}
	hist := Histogram{Midpoints: mids, Counts: make([]int, len(mids))}
	for _, h := range hits {
		if h == nil || h.HitType != calo.HCAL {
			continue
		}
		rho, err := b.ComputeDensity(h)
		if err != nil {
			hist.Skipped++
			continue
		}
		hist.Counts[index[rho]]++
	}
	return hist
}

// RenderDensityHistogram writes an HTML bar chart of hist to w.
func RenderDensityHistogram(w io.Writer, hist Histogram, title string) error {
	x := make([]string, len(hist.Midpoints))
	y := make([]opts.BarData, len(hist.Counts))
	for i, mid := range hist.Midpoints {
		x[i] = fmt.Sprintf("%g", mid)
		y[i] = opts.BarData{Value: hist.Counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("hits=%d skipped=%d", hist.Total(), hist.Skipped)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Density (GeV/dm³)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Hits"}),
	)
	bar.SetXAxis(x).
		AddSeries("hits", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// RenderCorrectionScatter writes an HTML scatter of corrected against raw
// cluster energy. Failed corrections are left out.
func RenderCorrectionScatter(w io.Writer, corrections []softcomp.Correction, title string) error {
	pts := make([]opts.ScatterData, 0, len(corrections))
	maxE := 0.0
	for _, c := range corrections {
		if c.Err != nil {
			continue
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{c.Raw, c.Corrected, c.ClusterID}})
		maxE = max(maxE, c.Raw, c.Corrected)
	}
	if maxE == 0 {
		maxE = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("clusters=%d", len(pts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: maxE * 1.1, Name: "Raw (GeV)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: maxE * 1.1, Name: "Corrected (GeV)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("clusters", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	page := components.NewPage()
	page.AddCharts(scatter)
	return page.Render(w)
}

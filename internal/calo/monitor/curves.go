// Package monitor renders diagnostic plots and summaries for software
// compensation: weight curves, density histograms and raw vs corrected
// energy comparisons.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pflow/internal/calo/softcomp"
)

// WeightCurve samples the HCAL hit weight at cluster energy e for each
// density.
func WeightCurve(m *softcomp.Model, e float64, densities []float64) plotter.XYs {
	coeff := m.Coefficients(e)
	pts := make(plotter.XYs, 0, len(densities))
	for _, rho := range densities {
		w := coeff.Weight(rho)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: rho, Y: w})
	}
	return pts
}

// PlotWeightCurves saves a PNG with one weight-vs-density line per cluster
// energy, sampled at the model's bin midpoints.
func PlotWeightCurves(m *softcomp.Model, energies []float64, path string) error {
	if len(energies) == 0 {
		return fmt.Errorf("plot weight curves: no cluster energies")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("plot weight curves: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Software compensation weights"
	p.X.Label.Text = "Energy density (GeV/dm³)"
	p.Y.Label.Text = "Weight"

	densities := m.Binning().Midpoints()
	colors := generateColors(len(energies))
	for i, e := range energies {
		pts := WeightCurve(m, e, densities)
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		points.Color = colors[i]
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("E = %g GeV", e), line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		t -= math.Floor(t)
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}

package monitor

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Summary describes raw and corrected cluster energies over a sample.
type Summary struct {
	N               int
	RawMean         float64
	RawStdDev       float64
	CorrectedMean   float64
	CorrectedStdDev float64
	// MeanRatio is the mean corrected/raw ratio over clusters with raw > 0.
	MeanRatio float64
}

// Summarize computes a Summary. raw and corrected must have equal length.
func Summarize(raw, corrected []float64) (Summary, error) {
	if len(raw) != len(corrected) {
		return Summary{}, fmt.Errorf("summarize: %d raw vs %d corrected values", len(raw), len(corrected))
	}
	s := Summary{N: len(raw)}
	if s.N == 0 {
		return s, nil
	}
	if s.N == 1 {
		s.RawMean, s.CorrectedMean = raw[0], corrected[0]
	} else {
		s.RawMean, s.RawStdDev = stat.MeanStdDev(raw, nil)
		s.CorrectedMean, s.CorrectedStdDev = stat.MeanStdDev(corrected, nil)
	}

	ratios := make([]float64, 0, len(raw))
	for i, r := range raw {
		if r > 0 {
			ratios = append(ratios, corrected[i]/r)
		}
	}
	if len(ratios) > 0 {
		s.MeanRatio = stat.Mean(ratios, nil)
	}
	return s, nil
}

package softcomp

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/pflow/internal/calo"
)

const (
	// mm3ToDm3 converts cell volumes from mm³ to dm³.
	mm3ToDm3 = 1e-6
	// minCellVolume is the smallest cell volume (dm³) treated as non-zero.
	minCellVolume = 1e-12
)

// DensityBinning quantises raw energy densities to bin midpoints.
type DensityBinning struct {
	edges []float64
	final float64
}

// NewDensityBinning validates edges and final and returns the binning.
func NewDensityBinning(edges []float64, final float64) (*DensityBinning, error) {
	if err := validateBins(edges, final); err != nil {
		return nil, err
	}
	return &DensityBinning{edges: append([]float64(nil), edges...), final: final}, nil
}

// Edges returns a copy of the bin lower edges.
func (b *DensityBinning) Edges() []float64 { return append([]float64(nil), b.edges...) }

// FinalBin returns the saturation value.
func (b *DensityBinning) FinalBin() float64 { return b.final }

// Midpoints returns every value Bin can produce, ascending, with the
// saturation value last.
func (b *DensityBinning) Midpoints() []float64 {
	out := make([]float64, 0, len(b.edges))
	for i := 0; i+1 < len(b.edges); i++ {
		out = append(out, (b.edges[i]+b.edges[i+1])/2)
	}
	return append(out, b.final)
}

// Bin maps a raw density to the midpoint of the half-open bin containing it,
// or to the final bin at or above the last edge. Negative or NaN densities
// (a hit with negative energy) fail with ErrArithmetic rather than falling
// back to a zero density, so the caller keeps the cluster's raw energy.
func (b *DensityBinning) Bin(density float64) (float64, error) {
	if math.IsNaN(density) || density < 0 {
		return 0, fmt.Errorf("%w: energy density %g outside binning", ErrArithmetic, density)
	}
	last := len(b.edges) - 1
	if density >= b.edges[last] {
		return b.final, nil
	}
	// Largest i with edges[i] <= density; edges[0] is 0 so i >= 0.
	i := sort.Search(len(b.edges), func(j int) bool { return b.edges[j] > density }) - 1
	return (b.edges[i] + b.edges[i+1]) / 2, nil
}

// CellVolume returns the hit's cell volume in dm³.
func CellVolume(hit *calo.CaloHit) float64 {
	return hit.CellSize0 * hit.CellSize1 * hit.CellThickness * mm3ToDm3
}

// RawDensity returns the hit's hadronic energy per dm³.
func RawDensity(hit *calo.CaloHit) (float64, error) {
	v := CellVolume(hit)
	if !(v > minCellVolume) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: hit %d cell volume %g dm³", ErrArithmetic, hit.ID, v)
	}
	return hit.HadronicEnergy / v, nil
}

// ComputeDensity returns the quantised energy density of hit.
func (b *DensityBinning) ComputeDensity(hit *calo.CaloHit) (float64, error) {
	rho, err := RawDensity(hit)
	if err != nil {
		return 0, err
	}
	return b.Bin(rho)
}

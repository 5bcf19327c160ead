package softcomp

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pflow/internal/config"
)

var (
	// ErrConfiguration marks parameters that cannot build a usable Model.
	ErrConfiguration = errors.New("softcomp: invalid configuration")
	// ErrArithmetic marks a hit or cluster whose numbers cannot be normalised:
	// a near-zero cell volume or a near-zero cluster energy.
	ErrArithmetic = errors.New("softcomp: arithmetic error")
	// ErrNilCluster is returned when a nil cluster is passed for correction.
	ErrNilCluster = errors.New("softcomp: nil cluster")
)

// NumWeights is the number of compensation weights w0..w8.
const NumWeights = config.NumSoftCompWeights

// Parameters holds the immutable settings of a Model.
type Parameters struct {
	// Weights are w0..w8 of the weight function.
	Weights []float64
	// DensityBins are ascending bin lower edges starting at 0. The last edge
	// is the saturation threshold.
	DensityBins []float64
	// FinalBin is the density used at or above the last edge.
	FinalBin float64

	MinCleanHitEnergy          float64
	MinCleanHitEnergyFraction  float64
	MinCleanCorrectedHitEnergy float64

	// MaxClusterEnergyToApplySoftComp is the estimate above which Pass A is
	// skipped and the estimate is kept.
	MaxClusterEnergyToApplySoftComp float64

	// PseudoLayerAtIP is the first pseudolayer; cleaning does not look for a
	// previous layer at or below it.
	PseudoLayerAtIP uint
}

// DefaultParameters returns the built-in defaults.
func DefaultParameters() Parameters {
	return ParametersFromConfig(config.EmptyTuningConfig())
}

// ParametersFromConfig reads the compensation settings out of cfg. Missing
// fields take their defaults. The result is not validated; New does that.
func ParametersFromConfig(cfg *config.TuningConfig) Parameters {
	layer := cfg.GetPseudoLayerAtIP()
	if layer < 0 {
		layer = 0
	}
	return Parameters{
		Weights:                         cfg.GetSoftCompWeights(),
		DensityBins:                     cfg.GetSoftCompEnergyDensityBins(),
		FinalBin:                        cfg.GetEnergyDensityFinalBin(),
		MinCleanHitEnergy:               cfg.GetMinCleanHitEnergy(),
		MinCleanHitEnergyFraction:       cfg.GetMinCleanHitEnergyFraction(),
		MinCleanCorrectedHitEnergy:      cfg.GetMinCleanCorrectedHitEnergy(),
		MaxClusterEnergyToApplySoftComp: cfg.GetMaxClusterEnergyToApplySoftComp(),
		PseudoLayerAtIP:                 uint(layer),
	}
}

// Clone returns a deep copy of p.
func (p Parameters) Clone() Parameters {
	p.Weights = append([]float64(nil), p.Weights...)
	p.DensityBins = append([]float64(nil), p.DensityBins...)
	return p
}

// Validate reports the first problem with p, wrapped in ErrConfiguration.
func (p Parameters) Validate() error {
	if len(p.Weights) != NumWeights {
		return fmt.Errorf("%w: need %d weights, got %d", ErrConfiguration, NumWeights, len(p.Weights))
	}
	for i, w := range p.Weights {
		if !isFinite(w) {
			return fmt.Errorf("%w: weight w%d is not finite", ErrConfiguration, i)
		}
	}
	if err := validateBins(p.DensityBins, p.FinalBin); err != nil {
		return err
	}

	thresholds := []struct {
		name string
		v    float64
	}{
		{"min clean hit energy", p.MinCleanHitEnergy},
		{"min clean hit energy fraction", p.MinCleanHitEnergyFraction},
		{"min clean corrected hit energy", p.MinCleanCorrectedHitEnergy},
		{"max cluster energy to apply soft comp", p.MaxClusterEnergyToApplySoftComp},
	}
	for _, th := range thresholds {
		if !isFinite(th.v) || th.v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %g", ErrConfiguration, th.name, th.v)
		}
	}
	return nil
}

// validateBins checks that edges partition [0, last) with no gaps and that
// the saturation value is not below the last edge.
func validateBins(edges []float64, final float64) error {
	if len(edges) == 0 {
		return fmt.Errorf("%w: no density bins", ErrConfiguration)
	}
	if edges[0] != 0 {
		return fmt.Errorf("%w: first density bin edge must be 0, got %g", ErrConfiguration, edges[0])
	}
	for i := 1; i < len(edges); i++ {
		if !isFinite(edges[i]) {
			return fmt.Errorf("%w: density bin edge %d is not finite", ErrConfiguration, i)
		}
		if edges[i] <= edges[i-1] {
			return fmt.Errorf("%w: density bin edges must be strictly ascending (%g after %g)", ErrConfiguration, edges[i], edges[i-1])
		}
	}
	last := edges[len(edges)-1]
	if !isFinite(final) || final < last {
		return fmt.Errorf("%w: final density bin %g below last edge %g", ErrConfiguration, final, last)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package hitprep

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pflow/internal/config"
)

// ErrInvalidSettings is wrapped by every Settings validation error.
var ErrInvalidSettings = errors.New("hitprep: invalid settings")

// Settings are the hit preparation cuts. Distances are in mm.
type Settings struct {
	CaloHitMaxSeparation          float64
	IsolationCaloHitMaxSeparation float64
	IsolationNLayers              uint
	IsolationCutDistanceFine      float64
	IsolationCutDistanceCoarse    float64
	IsolationSearchSafetyFactor   float64
	IsolationMaxNearbyHits        uint
	MipLikeMipCut                 float64
	MipNCellsForNearbyHit         uint
	MipMaxNearbyHits              uint
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.EmptyTuningConfig())
}

// SettingsFromConfig reads hit preparation settings out of cfg.
func SettingsFromConfig(cfg *config.TuningConfig) Settings {
	return Settings{
		CaloHitMaxSeparation:          cfg.GetCaloHitMaxSeparation(),
		IsolationCaloHitMaxSeparation: cfg.GetIsolationCaloHitMaxSeparation(),
		IsolationNLayers:              toUint(cfg.GetIsolationNLayers()),
		IsolationCutDistanceFine:      cfg.GetIsolationCutDistanceFine(),
		IsolationCutDistanceCoarse:    cfg.GetIsolationCutDistanceCoarse(),
		IsolationSearchSafetyFactor:   cfg.GetIsolationSearchSafetyFactor(),
		IsolationMaxNearbyHits:        toUint(cfg.GetIsolationMaxNearbyHits()),
		MipLikeMipCut:                 cfg.GetMipLikeMipCut(),
		MipNCellsForNearbyHit:         toUint(cfg.GetMipNCellsForNearbyHit()),
		MipMaxNearbyHits:              toUint(cfg.GetMipMaxNearbyHits()),
	}
}

func toUint(v int) uint {
	if v < 0 {
		return 0
	}
	return uint(v)
}

// Validate rejects negative or non-finite distances and factors.
func (s Settings) Validate() error {
	values := []struct {
		name string
		v    float64
	}{
		{"calo hit max separation", s.CaloHitMaxSeparation},
		{"isolation calo hit max separation", s.IsolationCaloHitMaxSeparation},
		{"isolation cut distance fine", s.IsolationCutDistanceFine},
		{"isolation cut distance coarse", s.IsolationCutDistanceCoarse},
		{"isolation search safety factor", s.IsolationSearchSafetyFactor},
		{"mip like mip cut", s.MipLikeMipCut},
	}
	for _, val := range values {
		if math.IsNaN(val.v) || math.IsInf(val.v, 0) || val.v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %g", ErrInvalidSettings, val.name, val.v)
		}
	}
	return nil
}

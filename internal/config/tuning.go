package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// NumSoftCompWeights is the number of software compensation weights.
const NumSoftCompWeights = 9

// TuningConfig represents the root configuration for reconstruction tuning.
// Every field is optional: the Get* accessors fall back to defaults, so a
// partial JSON file only overrides the values it names.
type TuningConfig struct {
	// Software compensation params
	SoftCompWeights                 []float64 `json:"softcomp_weights,omitempty"`
	SoftCompEnergyDensityBins       []float64 `json:"softcomp_energy_density_bins,omitempty"`
	EnergyDensityFinalBin           *float64  `json:"energy_density_final_bin,omitempty"`
	MinCleanHitEnergy               *float64  `json:"min_clean_hit_energy,omitempty"`
	MinCleanHitEnergyFraction       *float64  `json:"min_clean_hit_energy_fraction,omitempty"`
	MinCleanCorrectedHitEnergy      *float64  `json:"min_clean_corrected_hit_energy,omitempty"`
	MaxClusterEnergyToApplySoftComp *float64  `json:"max_cluster_energy_to_apply_soft_comp,omitempty"`
	PseudoLayerAtIP                 *int      `json:"pseudo_layer_at_ip,omitempty"`

	// Hit preparation params
	CaloHitMaxSeparation          *float64 `json:"calo_hit_max_separation,omitempty"`
	IsolationCaloHitMaxSeparation *float64 `json:"isolation_calo_hit_max_separation,omitempty"`
	IsolationNLayers              *int     `json:"isolation_n_layers,omitempty"`
	IsolationCutDistanceFine      *float64 `json:"isolation_cut_distance_fine,omitempty"`
	IsolationCutDistanceCoarse    *float64 `json:"isolation_cut_distance_coarse,omitempty"`
	IsolationSearchSafetyFactor   *float64 `json:"isolation_search_safety_factor,omitempty"`
	IsolationMaxNearbyHits        *int     `json:"isolation_max_nearby_hits,omitempty"`
	MipLikeMipCut                 *float64 `json:"mip_like_mip_cut,omitempty"`
	MipNCellsForNearbyHit         *int     `json:"mip_n_cells_for_nearby_hit,omitempty"`
	MipMaxNearbyHits              *int     `json:"mip_max_nearby_hits,omitempty"`

	// Training capture
	TrainingTreeName *string `json:"training_tree_name,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		SoftCompWeights:                 c.GetSoftCompWeights(),
		SoftCompEnergyDensityBins:       c.GetSoftCompEnergyDensityBins(),
		EnergyDensityFinalBin:           ptrFloat64(c.GetEnergyDensityFinalBin()),
		MinCleanHitEnergy:               ptrFloat64(c.GetMinCleanHitEnergy()),
		MinCleanHitEnergyFraction:       ptrFloat64(c.GetMinCleanHitEnergyFraction()),
		MinCleanCorrectedHitEnergy:      ptrFloat64(c.GetMinCleanCorrectedHitEnergy()),
		MaxClusterEnergyToApplySoftComp: ptrFloat64(c.GetMaxClusterEnergyToApplySoftComp()),
		PseudoLayerAtIP:                 ptrInt(c.GetPseudoLayerAtIP()),
		CaloHitMaxSeparation:            ptrFloat64(c.GetCaloHitMaxSeparation()),
		IsolationCaloHitMaxSeparation:   ptrFloat64(c.GetIsolationCaloHitMaxSeparation()),
		IsolationNLayers:                ptrInt(c.GetIsolationNLayers()),
		IsolationCutDistanceFine:        ptrFloat64(c.GetIsolationCutDistanceFine()),
		IsolationCutDistanceCoarse:      ptrFloat64(c.GetIsolationCutDistanceCoarse()),
		IsolationSearchSafetyFactor:     ptrFloat64(c.GetIsolationSearchSafetyFactor()),
		IsolationMaxNearbyHits:          ptrInt(c.GetIsolationMaxNearbyHits()),
		MipLikeMipCut:                   ptrFloat64(c.GetMipLikeMipCut()),
		MipNCellsForNearbyHit:           ptrInt(c.GetMipNCellsForNearbyHit()),
		MipMaxNearbyHits:                ptrInt(c.GetMipMaxNearbyHits()),
		TrainingTreeName:                ptrString(c.GetTrainingTreeName()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and returns an empty config
// (all defaults) otherwise.
func LoadOrDefault(path string) (*TuningConfig, error) {
	if path == "" {
		return EmptyTuningConfig(), nil
	}
	return LoadTuningConfig(path)
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/calo/softcomp/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that can be judged in isolation. Cross-field
// rules on the density bins are enforced when the compensation model is
// built from the config.
func (c *TuningConfig) Validate() error {
	if c.SoftCompWeights != nil && len(c.SoftCompWeights) != NumSoftCompWeights {
		return fmt.Errorf("softcomp_weights must have %d entries, got %d", NumSoftCompWeights, len(c.SoftCompWeights))
	}
	if c.SoftCompEnergyDensityBins != nil && len(c.SoftCompEnergyDensityBins) == 0 {
		return fmt.Errorf("softcomp_energy_density_bins must not be empty")
	}

	nonNegative := map[string]*float64{
		"min_clean_hit_energy":                  c.MinCleanHitEnergy,
		"min_clean_hit_energy_fraction":         c.MinCleanHitEnergyFraction,
		"min_clean_corrected_hit_energy":        c.MinCleanCorrectedHitEnergy,
		"max_cluster_energy_to_apply_soft_comp": c.MaxClusterEnergyToApplySoftComp,
		"calo_hit_max_separation":               c.CaloHitMaxSeparation,
		"isolation_calo_hit_max_separation":     c.IsolationCaloHitMaxSeparation,
		"isolation_cut_distance_fine":           c.IsolationCutDistanceFine,
		"isolation_cut_distance_coarse":         c.IsolationCutDistanceCoarse,
		"isolation_search_safety_factor":        c.IsolationSearchSafetyFactor,
		"mip_like_mip_cut":                      c.MipLikeMipCut,
	}
	for name, v := range nonNegative {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	nonNegativeInt := map[string]*int{
		"pseudo_layer_at_ip":         c.PseudoLayerAtIP,
		"isolation_n_layers":         c.IsolationNLayers,
		"isolation_max_nearby_hits":  c.IsolationMaxNearbyHits,
		"mip_n_cells_for_nearby_hit": c.MipNCellsForNearbyHit,
		"mip_max_nearby_hits":        c.MipMaxNearbyHits,
	}
	for name, v := range nonNegativeInt {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}

	if c.TrainingTreeName != nil && *c.TrainingTreeName == "" {
		return fmt.Errorf("training_tree_name must not be empty")
	}

	return nil
}

// GetSoftCompWeights returns a copy of the softcomp_weights or the default.
func (c *TuningConfig) GetSoftCompWeights() []float64 {
	if c.SoftCompWeights == nil {
		return []float64{2.49632, -0.0697302, 0.000946986, -0.112311, 0.0028182, -9.62602e-05, 0.168614, 0.224318, -0.0872853}
	}
	return append([]float64(nil), c.SoftCompWeights...)
}

// GetSoftCompEnergyDensityBins returns a copy of the bin lower edges or the default.
func (c *TuningConfig) GetSoftCompEnergyDensityBins() []float64 {
	if c.SoftCompEnergyDensityBins == nil {
		return []float64{0, 2, 5, 7.5, 9.5, 13, 16, 20, 23.5, 28}
	}
	return append([]float64(nil), c.SoftCompEnergyDensityBins...)
}

// GetEnergyDensityFinalBin returns the energy_density_final_bin value or the default.
func (c *TuningConfig) GetEnergyDensityFinalBin() float64 {
	if c.EnergyDensityFinalBin == nil {
		return 30
	}
	return *c.EnergyDensityFinalBin
}

// GetMinCleanHitEnergy returns the min_clean_hit_energy value or the default.
func (c *TuningConfig) GetMinCleanHitEnergy() float64 {
	if c.MinCleanHitEnergy == nil {
		return 0.5
	}
	return *c.MinCleanHitEnergy
}

// GetMinCleanHitEnergyFraction returns the min_clean_hit_energy_fraction value or the default.
func (c *TuningConfig) GetMinCleanHitEnergyFraction() float64 {
	if c.MinCleanHitEnergyFraction == nil {
		return 0.01
	}
	return *c.MinCleanHitEnergyFraction
}

// GetMinCleanCorrectedHitEnergy returns the min_clean_corrected_hit_energy value or the default.
func (c *TuningConfig) GetMinCleanCorrectedHitEnergy() float64 {
	if c.MinCleanCorrectedHitEnergy == nil {
		return 0.1
	}
	return *c.MinCleanCorrectedHitEnergy
}

// GetMaxClusterEnergyToApplySoftComp returns the ceiling above which clusters
// are not re-weighted.
func (c *TuningConfig) GetMaxClusterEnergyToApplySoftComp() float64 {
	if c.MaxClusterEnergyToApplySoftComp == nil {
		return 100
	}
	return *c.MaxClusterEnergyToApplySoftComp
}

// GetPseudoLayerAtIP returns the pseudo_layer_at_ip value or the default.
func (c *TuningConfig) GetPseudoLayerAtIP() int {
	if c.PseudoLayerAtIP == nil {
		return 0
	}
	return *c.PseudoLayerAtIP
}

// GetCaloHitMaxSeparation returns the calo_hit_max_separation value (mm) or the default.
func (c *TuningConfig) GetCaloHitMaxSeparation() float64 {
	if c.CaloHitMaxSeparation == nil {
		return 100
	}
	return *c.CaloHitMaxSeparation
}

// GetIsolationCaloHitMaxSeparation returns the isolation_calo_hit_max_separation value (mm) or the default.
func (c *TuningConfig) GetIsolationCaloHitMaxSeparation() float64 {
	if c.IsolationCaloHitMaxSeparation == nil {
		return 1000
	}
	return *c.IsolationCaloHitMaxSeparation
}

// GetIsolationNLayers returns the isolation_n_layers value or the default.
func (c *TuningConfig) GetIsolationNLayers() int {
	if c.IsolationNLayers == nil {
		return 2
	}
	return *c.IsolationNLayers
}

// GetIsolationCutDistanceFine returns the isolation_cut_distance_fine value (mm) or the default.
func (c *TuningConfig) GetIsolationCutDistanceFine() float64 {
	if c.IsolationCutDistanceFine == nil {
		return 25
	}
	return *c.IsolationCutDistanceFine
}

// GetIsolationCutDistanceCoarse returns the isolation_cut_distance_coarse value (mm) or the default.
func (c *TuningConfig) GetIsolationCutDistanceCoarse() float64 {
	if c.IsolationCutDistanceCoarse == nil {
		return 200
	}
	return *c.IsolationCutDistanceCoarse
}

// GetIsolationSearchSafetyFactor returns the isolation_search_safety_factor value or the default.
func (c *TuningConfig) GetIsolationSearchSafetyFactor() float64 {
	if c.IsolationSearchSafetyFactor == nil {
		return 2
	}
	return *c.IsolationSearchSafetyFactor
}

// GetIsolationMaxNearbyHits returns the isolation_max_nearby_hits value or the default.
func (c *TuningConfig) GetIsolationMaxNearbyHits() int {
	if c.IsolationMaxNearbyHits == nil {
		return 2
	}
	return *c.IsolationMaxNearbyHits
}

// GetMipLikeMipCut returns the mip_like_mip_cut value or the default.
func (c *TuningConfig) GetMipLikeMipCut() float64 {
	if c.MipLikeMipCut == nil {
		return 5
	}
	return *c.MipLikeMipCut
}

// GetMipNCellsForNearbyHit returns the mip_n_cells_for_nearby_hit value or the default.
func (c *TuningConfig) GetMipNCellsForNearbyHit() int {
	if c.MipNCellsForNearbyHit == nil {
		return 2
	}
	return *c.MipNCellsForNearbyHit
}

// GetMipMaxNearbyHits returns the mip_max_nearby_hits value or the default.
func (c *TuningConfig) GetMipMaxNearbyHits() int {
	if c.MipMaxNearbyHits == nil {
		return 1
	}
	return *c.MipMaxNearbyHits
}

// GetTrainingTreeName returns the training_tree_name value or the default.
func (c *TuningConfig) GetTrainingTreeName() string {
	if c.TrainingTreeName == nil {
		return "SoftwareCompensationTrainingTree"
	}
	return *c.TrainingTreeName
}

package calo

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// HitType is the detector subsystem a hit was recorded in.
type HitType int

const (
	HitTypeUnknown HitType = iota
	ECAL
	HCAL
	MUON
)

var hitTypeNames = map[HitType]string{
	HitTypeUnknown: "unknown",
	ECAL:           "ecal",
	HCAL:           "hcal",
	MUON:           "muon",
}

func (t HitType) String() string {
	if s, ok := hitTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("HitType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t HitType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (t *HitType) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range hitTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown hit type %q", string(b))
}

// Granularity is the readout cell granularity of a subdetector. Values are
// ordered: anything greater than Fine is considered coarse.
type Granularity int

const (
	VeryFine Granularity = iota
	Fine
	Coarse
	VeryCoarse
)

var granularityNames = map[Granularity]string{
	VeryFine:   "very_fine",
	Fine:       "fine",
	Coarse:     "coarse",
	VeryCoarse: "very_coarse",
}

func (g Granularity) String() string {
	if s, ok := granularityNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Granularity) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Granularity) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range granularityNames {
		if v == s {
			*g = k
			return nil
		}
	}
	return fmt.Errorf("unknown granularity %q", string(b))
}

// HitRegion distinguishes barrel from endcap hits.
type HitRegion int

const (
	Barrel HitRegion = iota
	Endcap
)

func (r HitRegion) String() string {
	switch r {
	case Barrel:
		return "barrel"
	case Endcap:
		return "endcap"
	}
	return fmt.Sprintf("HitRegion(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r HitRegion) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *HitRegion) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "barrel":
		*r = Barrel
	case "endcap":
		*r = Endcap
	default:
		return fmt.Errorf("unknown hit region %q", string(b))
	}
	return nil
}

// CaloHit is a single calorimeter cell deposit. Positions and cell sizes are
// in mm, energies in GeV.
type CaloHit struct {
	ID    int     `json:"id" yaml:"id"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Layer uint    `json:"pseudo_layer" yaml:"pseudo_layer"`

	HadronicEnergy        float64 `json:"hadronic_energy" yaml:"hadronic_energy"`
	ElectromagneticEnergy float64 `json:"electromagnetic_energy" yaml:"electromagnetic_energy"`
	MipEquivalentEnergy   float64 `json:"mip_equivalent_energy" yaml:"mip_equivalent_energy"`

	HitType     HitType     `json:"hit_type" yaml:"hit_type"`
	Granularity Granularity `json:"granularity" yaml:"granularity"`
	HitRegion   HitRegion   `json:"hit_region" yaml:"hit_region"`

	CellSize0       float64 `json:"cell_size0" yaml:"cell_size0"`
	CellSize1       float64 `json:"cell_size1" yaml:"cell_size1"`
	CellThickness   float64 `json:"cell_thickness" yaml:"cell_thickness"`
	CellLengthScale float64 `json:"cell_length_scale" yaml:"cell_length_scale"`
	IsDigital       bool    `json:"is_digital" yaml:"is_digital"`

	// Consumed marks hits already used by earlier processing; they are
	// excluded from spatial indexes.
	Consumed bool `json:"consumed" yaml:"consumed"`

	// Metadata written by hit preparation.
	IsIsolated    bool `json:"is_isolated" yaml:"is_isolated"`
	IsPossibleMip bool `json:"is_possible_mip" yaml:"is_possible_mip"`
}

// Position returns the hit position vector.
func (h *CaloHit) Position() r3.Vec { return r3.Vec{X: h.X, Y: h.Y, Z: h.Z} }

// PseudoLayer returns the discrete depth layer of the hit.
func (h *CaloHit) PseudoLayer() uint { return h.Layer }

// Available reports whether the hit may still be used.
func (h *CaloHit) Available() bool { return !h.Consumed }

// Track is a reconstructed charged track, positioned at its state on the
// calorimeter front face.
type Track struct {
	ID          int     `json:"id" yaml:"id"`
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Z           float64 `json:"z" yaml:"z"`
	EnergyAtDca float64 `json:"energy_at_dca" yaml:"energy_at_dca"`
	CanFormPfo  bool    `json:"can_form_pfo" yaml:"can_form_pfo"`
	Daughters   []int   `json:"daughters,omitempty" yaml:"daughters,omitempty"`
}

// Position returns the track state position at the calorimeter.
func (t *Track) Position() r3.Vec { return r3.Vec{X: t.X, Y: t.Y, Z: t.Z} }

package softcomp

import "github.com/banshee-data/pflow/internal/calo"

// Containment describes which calorimeters a cluster's hits are in.
type Containment int

const (
	ContainmentNone Containment = iota
	ECALOnly
	HCALOnly
	Mixed
)

func (c Containment) String() string {
	switch c {
	case ECALOnly:
		return "ecal_only"
	case HCALOnly:
		return "hcal_only"
	case Mixed:
		return "mixed"
	default:
		return "none"
	}
}

// ClassifyContainment classifies hits by calorimeter. Hits of other types
// (muon, unknown) make a cluster Mixed when any calorimeter hit is present.
func ClassifyContainment(hits []*calo.CaloHit) Containment {
	var ecal, hcal, other bool
	for _, h := range hits {
		if h == nil {
			continue
		}
		switch h.HitType {
		case calo.ECAL:
			ecal = true
		case calo.HCAL:
			hcal = true
		default:
			other = true
		}
	}
	switch {
	case !ecal && !hcal:
		return ContainmentNone
	case ecal && !hcal && !other:
		return ECALOnly
	case hcal && !ecal && !other:
		return HCALOnly
	default:
		return Mixed
	}
}

package softcomp

import "github.com/banshee-data/pflow/internal/calo"

// SumEnergyInLayer returns the summed hadronic energy of the hits in layer,
// or 0 when the layer is absent.
func SumEnergyInLayer(list calo.OrderedCaloHitList, layer uint) float64 {
	sum := 0.0
	for _, h := range list[layer] {
		sum += h.HadronicEnergy
	}
	return sum
}

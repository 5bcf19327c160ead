package training

import (
	"github.com/banshee-data/pflow/internal/calo"
)

// Hit type codes stored with each training hit.
const (
	HitTypeCodeECAL  = 1
	HitTypeCodeHCAL  = 2
	HitTypeCodeOther = 3
)

// HitTypeCode maps a hit type to its stored code.
func HitTypeCode(t calo.HitType) int {
	switch t {
	case calo.ECAL:
		return HitTypeCodeECAL
	case calo.HCAL:
		return HitTypeCodeHCAL
	default:
		return HitTypeCodeOther
	}
}

// Record is one training sample: the true (PFO) energy, the raw cluster
// energy and per-hit columns in hit order.
type Record struct {
	RecordID           string    `json:"record_id"`
	RunID              string    `json:"run_id"`
	EventNumber        int64     `json:"event_number"`
	PfoEnergy          float64   `json:"pfo_energy"`
	RawEnergyOfCluster float64   `json:"raw_energy_of_cluster"`
	HitEnergies        []float64 `json:"hit_energies"`
	CellSize0          []float64 `json:"cell_size0"`
	CellSize1          []float64 `json:"cell_size1"`
	CellThickness      []float64 `json:"cell_thickness"`
	HitType            []int     `json:"hit_type"`
	CreatedAtNs        int64     `json:"created_at_ns"`
}

// NewRecord captures c, layered hits first then isolated hits.
func NewRecord(pfoEnergy float64, c *calo.Cluster) *Record {
	hits := c.AllCaloHits()
	rec := &Record{
		PfoEnergy:          pfoEnergy,
		RawEnergyOfCluster: c.HadronicEnergy,
		HitEnergies:        make([]float64, 0, len(hits)),
		CellSize0:          make([]float64, 0, len(hits)),
		CellSize1:          make([]float64, 0, len(hits)),
		CellThickness:      make([]float64, 0, len(hits)),
		HitType:            make([]int, 0, len(hits)),
	}
	for _, h := range hits {
		rec.HitEnergies = append(rec.HitEnergies, h.HadronicEnergy)
		rec.CellSize0 = append(rec.CellSize0, h.CellSize0)
		rec.CellSize1 = append(rec.CellSize1, h.CellSize1)
		rec.CellThickness = append(rec.CellThickness, h.CellThickness)
		rec.HitType = append(rec.HitType, HitTypeCode(h.HitType))
	}
	return rec
}

// SelectSingleCluster returns the PFO energy and cluster of an event that
// holds exactly one PFO made of exactly one cluster. Other events are not
// usable for training and return false.
func SelectSingleCluster(ev *calo.Event, clusters []*calo.Cluster) (float64, *calo.Cluster, bool) {
	if ev == nil || len(ev.Pfos) != 1 {
		return 0, nil, false
	}
	pfo := ev.Pfos[0]
	if len(pfo.Clusters) != 1 {
		return 0, nil, false
	}
	idx := pfo.Clusters[0]
	if idx < 0 || idx >= len(clusters) || clusters[idx] == nil {
		return 0, nil, false
	}
	return pfo.Energy, clusters[idx], true
}

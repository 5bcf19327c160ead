package calo

// SplitMuonHits separates muon-system hits from ECAL/HCAL hits, keeping order.
func SplitMuonHits(hits []*CaloHit) (caloHits, muonHits []*CaloHit) {
	for _, h := range hits {
		if h.HitType == MUON {
			muonHits = append(muonHits, h)
		} else {
			caloHits = append(caloHits, h)
		}
	}
	return caloHits, muonHits
}

// ClusteringTracks returns the tracks without daughters; only those seed clustering.
func ClusteringTracks(tracks []*Track) []*Track {
	var out []*Track
	for _, t := range tracks {
		if len(t.Daughters) == 0 {
			out = append(out, t)
		}
	}
	return out
}

package hitprep

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/kdtree"
)

// TrackHitCounts returns, for each track ID, the number of available hits
// within radius (mm) of the track's calorimeter position. Tracks with no
// nearby hits map to 0.
func TrackHitCounts(tracks []*calo.Track, hits []*calo.CaloHit, radius float64) map[int]int {
	valid := make([]*calo.CaloHit, 0, len(hits))
	for _, h := range hits {
		if h != nil {
			valid = append(valid, h)
		}
	}
	nodes, bounds := kdtree.FillAndBound3D(valid, (*calo.CaloHit).Available)
	tree := kdtree.New(nodes, bounds)

	r2 := radius * radius
	counts := make(map[int]int, len(tracks))
	for _, tr := range tracks {
		if tr == nil {
			continue
		}
		pos := tr.Position()
		n := 0
		for _, h := range tree.SearchData(kdtree.SearchRegion3D(pos, radius, radius, radius)) {
			if r3.Norm2(r3.Sub(pos, h.Position())) <= r2 {
				n++
			}
		}
		counts[tr.ID] = n
	}
	return counts
}

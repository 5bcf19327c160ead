// Package hitprep flags isolated and MIP-like calorimeter hits before
// clustering.
package hitprep

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/kdtree"
	"github.com/banshee-data/pflow/internal/monitoring"
)

// Option configures a Preparer.
type Option func(*Preparer)

// WithLogger sets the diagnostic logger. Nil selects monitoring.Logf.
func WithLogger(l monitoring.Logger) Option {
	return func(p *Preparer) { p.logf = monitoring.Resolve(l) }
}

// Preparer computes the IsIsolated and IsPossibleMip flags of hits.
type Preparer struct {
	s    Settings
	logf monitoring.Logger
}

// Result summarises one Run.
type Result struct {
	NHits        int
	NLayers      int
	NIsolated    int
	NPossibleMip int
}

// New validates s and returns a Preparer.
func New(s Settings, opts ...Option) (*Preparer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Preparer{s: s, logf: monitoring.Resolve(nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run sets IsIsolated and IsPossibleMip on every hit, overwriting earlier
// values. Neighbours are looked up among available hits only. Nil hits are
// ignored.
func (p *Preparer) Run(ctx context.Context, hits []*calo.CaloHit) (Result, error) {
	valid := make([]*calo.CaloHit, 0, len(hits))
	for _, h := range hits {
		if h != nil {
			valid = append(valid, h)
		}
	}

	nodes, bounds := kdtree.FillAndBound4D(valid, (*calo.CaloHit).Available)
	tree := kdtree.New(nodes, bounds)

	list := calo.NewOrderedCaloHitList(valid)
	layers := list.Layers()

	res := Result{NHits: len(valid), NLayers: len(layers)}
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for _, h := range list[layer] {
			isolated, mip := p.classify(tree, list, layers, h)
			h.IsIsolated = isolated
			h.IsPossibleMip = mip
			if isolated {
				res.NIsolated++
			}
			if mip {
				res.NPossibleMip++
			}
		}
	}

	monitoring.FlaggedHitsTotal.WithLabelValues("isolated").Add(float64(res.NIsolated))
	monitoring.FlaggedHitsTotal.WithLabelValues("possible_mip").Add(float64(res.NPossibleMip))
	p.logf("[HitPrep] hits %d, layers %d, isolated %d, possible MIP %d",
		res.NHits, res.NLayers, res.NIsolated, res.NPossibleMip)
	return res, nil
}

// classify looks at the occupied layers within IsolationNLayers of h. Nearby
// hits are accumulated layer by layer until the isolation limit is reached.
// The MIP test only uses the hit's own layer.
func (p *Preparer) classify(tree *kdtree.Tree[*calo.CaloHit], list calo.OrderedCaloHitList, layers []uint, h *calo.CaloHit) (isolated, mip bool) {
	layer := h.Layer
	minLayer := uint(0)
	if layer > p.s.IsolationNLayers {
		minLayer = layer - p.s.IsolationNLayers
	}
	maxLayer := layer + p.s.IsolationNLayers
	if maxLayer < layer {
		maxLayer = math.MaxUint
	}

	isolated = true
	nearby := uint(0)
	start := sort.Search(len(layers), func(i int) bool { return layers[i] >= minLayer })
	for _, l := range layers[start:] {
		if l > maxLayer {
			break
		}
		if isolated {
			nearby += p.isolationCountNearbyHits(tree, l, h)
			isolated = nearby < p.s.IsolationMaxNearbyHits
		}
		if l == layer {
			mip = p.isPossibleMip(tree, l, h)
		}
	}
	return isolated, mip
}

func (p *Preparer) isolationCutDistance(h *calo.CaloHit) float64 {
	if h.Granularity <= calo.Fine {
		return p.s.IsolationCutDistanceFine
	}
	return p.s.IsolationCutDistanceCoarse
}

// isolationCountNearbyHits counts hits in searchLayer within the isolation
// separation of h whose distance from the line through the origin and h is
// below the cut distance.
func (p *Preparer) isolationCountNearbyHits(tree *kdtree.Tree[*calo.CaloHit], searchLayer uint, h *calo.CaloHit) uint {
	pos := h.Position()
	mag2 := r3.Norm2(pos)
	cut := p.isolationCutDistance(h)
	cut2 := cut * cut
	maxSep2 := p.s.IsolationCaloHitMaxSeparation * p.s.IsolationCaloHitMaxSeparation

	span := p.s.IsolationSearchSafetyFactor * cut
	found := tree.SearchData(kdtree.SearchRegion4D(pos, span, span, span, searchLayer))
	monitoring.SearchResults.Observe(float64(len(found)))

	n := uint(0)
	for _, other := range found {
		if other == h {
			continue
		}
		diff := r3.Sub(pos, other.Position())
		if r3.Norm2(diff) > maxSep2 {
			continue
		}
		// A hit at the origin has no direction; nothing counts as nearby.
		if mag2 == 0 {
			continue
		}
		if r3.Norm2(r3.Cross(pos, diff))/mag2 < cut2 {
			n++
		}
	}
	return n
}

// isPossibleMip reports whether h looks like a minimum ionising deposit:
// muon hits always do, other hits need a small angle-corrected MIP
// equivalent energy (or digital readout) and few close neighbours.
func (p *Preparer) isPossibleMip(tree *kdtree.Tree[*calo.CaloHit], searchLayer uint, h *calo.CaloHit) bool {
	if h.HitType == calo.MUON {
		return true
	}
	pos := h.Position()
	mag := r3.Norm(pos)
	var angularCorrection float64
	if h.HitRegion == calo.Barrel {
		angularCorrection = mag / math.Hypot(pos.X, pos.Y)
	} else {
		angularCorrection = mag / math.Abs(pos.Z)
	}

	if h.MipEquivalentEnergy > p.s.MipLikeMipCut*angularCorrection && !h.IsDigital {
		return false
	}
	return p.mipCountNearbyHits(tree, searchLayer, h) <= p.s.MipMaxNearbyHits
}

// mipCountNearbyHits counts hits in searchLayer within a few cell lengths of
// h, measured along z and transversely in the barrel and along x and y in
// the endcaps.
func (p *Preparer) mipCountNearbyHits(tree *kdtree.Tree[*calo.CaloHit], searchLayer uint, h *calo.CaloHit) uint {
	pos := h.Position()
	maxSep := p.s.CaloHitMaxSeparation
	limit := (float64(p.s.MipNCellsForNearbyHit) + 0.5) * h.CellLengthScale
	barrel := h.HitRegion == calo.Barrel

	found := tree.SearchData(kdtree.SearchRegion4D(pos, maxSep, maxSep, maxSep, searchLayer))
	monitoring.SearchResults.Observe(float64(len(found)))

	n := uint(0)
	for _, other := range found {
		if other == h {
			continue
		}
		diff := r3.Sub(pos, other.Position())
		if r3.Norm2(diff) > maxSep*maxSep {
			continue
		}
		dx, dy := math.Abs(diff.X), math.Abs(diff.Y)
		if barrel {
			if math.Abs(diff.Z) < limit && math.Hypot(dx, dy) < limit {
				n++
			}
		} else if dx < limit && dy < limit {
			n++
		}
	}
	return n
}

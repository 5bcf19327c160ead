package calo

import "sort"

// OrderedCaloHitList groups hits by pseudolayer.
type OrderedCaloHitList map[uint][]*CaloHit

// NewOrderedCaloHitList builds a list from hits in input order.
func NewOrderedCaloHitList(hits []*CaloHit) OrderedCaloHitList {
	l := make(OrderedCaloHitList)
	l.Add(hits...)
	return l
}

// Add appends hits to their layers. Nil hits are skipped.
func (l OrderedCaloHitList) Add(hits ...*CaloHit) {
	for _, h := range hits {
		if h == nil {
			continue
		}
		l[h.Layer] = append(l[h.Layer], h)
	}
}

// Layers returns the occupied layers in ascending order.
func (l OrderedCaloHitList) Layers() []uint {
	layers := make([]uint, 0, len(l))
	for layer := range l {
		layers = append(layers, layer)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	return layers
}

// HitsInLayer returns the hits in layer and whether the layer is present.
func (l OrderedCaloHitList) HitsInLayer(layer uint) ([]*CaloHit, bool) {
	hits, ok := l[layer]
	return hits, ok
}

// AllHits flattens the list in ascending layer order.
func (l OrderedCaloHitList) AllHits() []*CaloHit {
	out := make([]*CaloHit, 0, l.Len())
	for _, layer := range l.Layers() {
		out = append(out, l[layer]...)
	}
	return out
}

// Len returns the total number of hits.
func (l OrderedCaloHitList) Len() int {
	n := 0
	for _, hits := range l {
		n += len(hits)
	}
	return n
}

package kdtree

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// PositionProvider is implemented by anything with a 3D position.
type PositionProvider interface {
	Position() r3.Vec
}

// LayeredPositionProvider adds the discrete pseudolayer used as fourth axis.
type LayeredPositionProvider interface {
	PositionProvider
	PseudoLayer() uint
}

// FillAndBound3D converts the eligible items to 3D tree points and returns
// them with their min/max envelope. A nil eligible accepts everything.
// Ineligible items are excluded from both the points and the envelope.
func FillAndBound3D[T PositionProvider](items []T, eligible func(T) bool) ([]NodeInfo[T], Box) {
	nodes := make([]NodeInfo[T], 0, len(items))
	for _, it := range items {
		if eligible != nil && !eligible(it) {
			continue
		}
		pos := it.Position()
		nodes = append(nodes, NewNodeInfo(it, pos.X, pos.Y, pos.Z))
	}
	return nodes, envelope(nodes, Dims3)
}

// FillAndBound4D is FillAndBound3D with the pseudolayer appended as fourth axis.
func FillAndBound4D[T LayeredPositionProvider](items []T, eligible func(T) bool) ([]NodeInfo[T], Box) {
	nodes := make([]NodeInfo[T], 0, len(items))
	for _, it := range items {
		if eligible != nil && !eligible(it) {
			continue
		}
		pos := it.Position()
		nodes = append(nodes, NewNodeInfo(it, pos.X, pos.Y, pos.Z, float64(it.PseudoLayer())))
	}
	return nodes, envelope(nodes, Dims4)
}

// envelope returns the min/max box over nodes; all zeros when there are none.
func envelope[T any](nodes []NodeInfo[T], dims int) Box {
	b := Box{Min: make([]float64, dims), Max: make([]float64, dims)}
	if len(nodes) == 0 {
		return b
	}
	column := make([]float64, len(nodes))
	for axis := 0; axis < dims; axis++ {
		for i, n := range nodes {
			column[i] = n.Coords[axis]
		}
		b.Min[axis] = floats.Min(column)
		b.Max[axis] = floats.Max(column)
	}
	return b
}

// SearchRegion3D returns a cube of the given half-widths around center.
func SearchRegion3D(center r3.Vec, xSpan, ySpan, zSpan float64) Box {
	return BuildBox(
		[]float64{center.X, center.Y, center.Z},
		[]float64{xSpan, ySpan, zSpan},
	)
}

// layerHalfWidth selects exactly one integer pseudolayer.
const layerHalfWidth = 0.5

// SearchRegion4D returns a box of the given spatial half-widths around center,
// restricted to searchLayer on the fourth axis.
func SearchRegion4D(center r3.Vec, xSpan, ySpan, zSpan float64, searchLayer uint) Box {
	return BuildBox(
		[]float64{center.X, center.Y, center.Z, float64(searchLayer)},
		[]float64{xSpan, ySpan, zSpan, layerHalfWidth},
	)
}

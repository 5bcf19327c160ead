package kdtree

import "fmt"

// Dimension counts for the two tree shapes in use.
const (
	Dims3 = 3 // x, y, z
	Dims4 = 4 // x, y, z, pseudolayer
)

// Box is an axis-aligned region with inclusive bounds on every axis.
type Box struct {
	Min []float64
	Max []float64
}

// NewBox builds a box from (min, max) pairs per axis, in axis order:
// NewBox(xmin, xmax, ymin, ymax, zmin, zmax). Each pair is order-corrected.
// An odd number of arguments is a programming error and panics.
func NewBox(bounds ...float64) Box {
	if len(bounds)%2 != 0 {
		panic(fmt.Sprintf("kdtree: NewBox requires min/max pairs, got %d values", len(bounds)))
	}
	dims := len(bounds) / 2
	b := Box{Min: make([]float64, dims), Max: make([]float64, dims)}
	for i := 0; i < dims; i++ {
		b.Min[i], b.Max[i] = minmax(bounds[2*i], bounds[2*i+1])
	}
	return b
}

// BuildBox returns the box centred on center with the given half-width per
// axis. Negative half-widths are tolerated: each axis is order-corrected.
// center and halfWidths must have the same length.
func BuildBox(center, halfWidths []float64) Box {
	if len(center) != len(halfWidths) {
		panic(fmt.Sprintf("kdtree: BuildBox center has %d axes, half-widths %d", len(center), len(halfWidths)))
	}
	b := Box{Min: make([]float64, len(center)), Max: make([]float64, len(center))}
	for i, c := range center {
		b.Min[i], b.Max[i] = minmax(c+halfWidths[i], c-halfWidths[i])
	}
	return b
}

func minmax(a, b float64) (float64, float64) {
	if b < a {
		return b, a
	}
	return a, b
}

// Dims returns the number of axes.
func (b Box) Dims() int { return len(b.Min) }

// Valid reports whether the box has matching min/max axes and min <= max on each.
func (b Box) Valid() bool {
	if len(b.Min) != len(b.Max) || len(b.Min) == 0 {
		return false
	}
	for i := range b.Min {
		if !(b.Min[i] <= b.Max[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether coords lie inside the box on every axis.
func (b Box) Contains(coords []float64) bool {
	if len(coords) != len(b.Min) {
		return false
	}
	for i, c := range coords {
		if c < b.Min[i] || c > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap. Boxes that are disjoint on
// any single axis do not intersect; touching faces count as overlap.
func (b Box) Intersects(o Box) bool {
	if len(b.Min) != len(o.Min) {
		return false
	}
	for i := range b.Min {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (b Box) Clone() Box {
	return Box{
		Min: append([]float64(nil), b.Min...),
		Max: append([]float64(nil), b.Max...),
	}
}

// extend grows b in place to include coords.
func (b Box) extend(coords []float64) {
	for i, c := range coords {
		if c < b.Min[i] {
			b.Min[i] = c
		}
		if c > b.Max[i] {
			b.Max[i] = c
		}
	}
}

func (b Box) String() string {
	return fmt.Sprintf("Box{min=%v max=%v}", b.Min, b.Max)
}

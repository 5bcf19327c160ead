package kdtree

// NodeInfo is a point stored in the tree: its coordinates and payload.
type NodeInfo[T any] struct {
	Data   T
	Coords []float64
}

// NewNodeInfo builds a NodeInfo from a payload and its coordinates.
func NewNodeInfo[T any](data T, coords ...float64) NodeInfo[T] {
	return NodeInfo[T]{Data: data, Coords: coords}
}

const noChild = -1

type node[T any] struct {
	info        NodeInfo[T]
	region      Box
	left, right int32
}

// Tree is a static k-d tree. The zero value is an empty tree.
type Tree[T any] struct {
	nodes []node[T]
	root  int32
	dims  int
}

// New builds a balanced tree over points. bounds should enclose every point;
// it is widened to do so when it does not. The points slice is copied, so
// the caller may reuse it after New returns.
//
// Every point must have len(bounds.Min) coordinates; points with the wrong
// dimensionality are dropped. An empty input yields an empty tree.
func New[T any](points []NodeInfo[T], bounds Box) *Tree[T] {
	t := &Tree[T]{root: noChild, dims: bounds.Dims()}
	if len(points) == 0 || t.dims == 0 {
		return t
	}

	items := make([]NodeInfo[T], 0, len(points))
	for _, p := range points {
		if len(p.Coords) == t.dims {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return t
	}

	region := bounds.Clone()
	for i := range region.Min {
		region.Min[i], region.Max[i] = minmax(region.Min[i], region.Max[i])
	}
	for _, it := range items {
		region.extend(it.Coords)
	}

	t.nodes = make([]node[T], 0, len(items))
	t.root = t.build(items, 0, region)
	return t
}

// build places the median along axis depth%dims at a new node and recurses on
// the two halves. Halves are split by count, so depth is O(log n).
func (t *Tree[T]) build(items []NodeInfo[T], depth int, region Box) int32 {
	if len(items) == 0 {
		return noChild
	}

	axis := depth % t.dims
	mid := len(items) / 2
	selectNth(items, mid, axis)

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node[T]{info: items[mid], region: region, left: noChild, right: noChild})

	split := items[mid].Coords[axis]

	if mid > 0 {
		leftRegion := region.Clone()
		leftRegion.Max[axis] = split
		left := t.build(items[:mid], depth+1, leftRegion)
		t.nodes[idx].left = left
	}
	if mid+1 < len(items) {
		rightRegion := region.Clone()
		rightRegion.Min[axis] = split
		right := t.build(items[mid+1:], depth+1, rightRegion)
		t.nodes[idx].right = right
	}
	return idx
}

// Len returns the number of points in the tree.
func (t *Tree[T]) Len() int { return len(t.nodes) }

// Empty reports whether the tree holds no points.
func (t *Tree[T]) Empty() bool { return t == nil || t.root == noChild || len(t.nodes) == 0 }

// Dims returns the tree dimensionality, 0 for an empty zero-value tree.
func (t *Tree[T]) Dims() int { return t.dims }

// Bounds returns a copy of the region enclosing the whole tree.
func (t *Tree[T]) Bounds() (Box, bool) {
	if t.Empty() {
		return Box{}, false
	}
	return t.nodes[t.root].region.Clone(), true
}

// Clear drops all nodes.
func (t *Tree[T]) Clear() {
	t.nodes = nil
	t.root = noChild
}

// Search returns every point whose coordinates lie inside region on every
// axis (inclusive). Order is unspecified and no point is returned twice.
// An empty tree, an invalid region or a region of the wrong dimensionality
// yields nil.
func (t *Tree[T]) Search(region Box) []NodeInfo[T] {
	var found []NodeInfo[T]
	t.visit(region, func(n NodeInfo[T]) { found = append(found, n) })
	return found
}

// SearchData is Search returning payloads only.
func (t *Tree[T]) SearchData(region Box) []T {
	var found []T
	t.visit(region, func(n NodeInfo[T]) { found = append(found, n.Data) })
	return found
}

// Count returns the number of points inside region.
func (t *Tree[T]) Count(region Box) int {
	n := 0
	t.visit(region, func(NodeInfo[T]) { n++ })
	return n
}

func (t *Tree[T]) visit(region Box, emit func(NodeInfo[T])) {
	if t.Empty() || region.Dims() != t.dims || !region.Valid() {
		return
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[i]
		if !n.region.Intersects(region) {
			continue
		}
		if region.Contains(n.info.Coords) {
			emit(n.info)
		}
		if n.left != noChild {
			stack = append(stack, n.left)
		}
		if n.right != noChild {
			stack = append(stack, n.right)
		}
	}
}

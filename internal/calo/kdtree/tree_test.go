package kdtree

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bruteForce(points []NodeInfo[int], region Box) []int {
	var out []int
	for _, p := range points {
		if region.Contains(p.Coords) {
			out = append(out, p.Data)
		}
	}
	return out
}

func boundsOf(points []NodeInfo[int], dims int) Box {
	return envelope(points, dims)
}

func randomPoints(rng *rand.Rand, n, dims int, layered bool) []NodeInfo[int] {
	points := make([]NodeInfo[int], n)
	for i := range points {
		coords := make([]float64, dims)
		for d := range coords {
			coords[d] = rng.Float64()*200 - 100
		}
		if layered {
			coords[dims-1] = float64(rng.Intn(10))
		}
		points[i] = NodeInfo[int]{Data: i, Coords: coords}
	}
	return points
}

func randomRegion(rng *rand.Rand, dims int) Box {
	bounds := make([]float64, 0, 2*dims)
	for d := 0; d < dims; d++ {
		bounds = append(bounds, rng.Float64()*240-120, rng.Float64()*240-120)
	}
	return NewBox(bounds...)
}

var sortInts = cmpopts.SortSlices(func(a, b int) bool { return a < b })

func TestTree_EmptyInput(t *testing.T) {
	tree := New[int](nil, NewBox(0, 1, 0, 1, 0, 1))
	assert.True(t, tree.Empty())
	assert.Equal(t, 0, tree.Len())
	assert.Nil(t, tree.Search(NewBox(-10, 10, -10, 10, -10, 10)))
	assert.Equal(t, 0, tree.Count(NewBox(-10, 10, -10, 10, -10, 10)))

	_, ok := tree.Bounds()
	assert.False(t, ok)

	var zero Tree[int]
	assert.True(t, zero.Empty())
	assert.Nil(t, zero.Search(NewBox(-1, 1, -1, 1, -1, 1)))
}

func TestTree_FivePointsIndependentOfOrder(t *testing.T) {
	base := []NodeInfo[int]{
		NewNodeInfo(0, 0, 0, 0),
		NewNodeInfo(1, 1, 1, 1),
		NewNodeInfo(2, 5, 5, 5),
		NewNodeInfo(3, -3, 2, 7),
		NewNodeInfo(4, 1.5, 0.5, 0.9),
	}
	region := NewBox(0.5, 2, 0, 1.5, 0.5, 1.2)
	want := []int{1, 4}
	require.Empty(t, cmp.Diff(want, bruteForce(base, region), sortInts))

	// Every permutation of the insertion order must answer identically.
	perm := []int{0, 1, 2, 3, 4}
	var permute func(k int)
	permute = func(k int) {
		if k == len(perm) {
			points := make([]NodeInfo[int], len(perm))
			for i, p := range perm {
				points[i] = base[p]
			}
			tree := New(points, boundsOf(points, Dims3))
			got := tree.SearchData(region)
			if diff := cmp.Diff(want, got, sortInts); diff != "" {
				t.Fatalf("order %v: search mismatch (-want +got):\n%s", perm, diff)
			}
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	permute(0)
}

func TestTree_MatchesBruteForce(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		dims    int
		layered bool
	}{
		{"3d single", 1, Dims3, false},
		{"3d small", 17, Dims3, false},
		{"3d large", 2000, Dims3, false},
		{"4d layered", 1500, Dims4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			points := randomPoints(rng, tt.n, tt.dims, tt.layered)
			tree := New(points, boundsOf(points, tt.dims))
			require.Equal(t, tt.n, tree.Len())

			for q := 0; q < 200; q++ {
				region := randomRegion(rng, tt.dims)
				got := tree.SearchData(region)
				want := bruteForce(points, region)
				if diff := cmp.Diff(want, got, sortInts, cmpopts.EquateEmpty()); diff != "" {
					t.Fatalf("query %d %v mismatch (-want +got):\n%s", q, region, diff)
				}
				assert.Equal(t, len(want), tree.Count(region))
			}
		})
	}
}

func TestTree_NoDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := randomPoints(rng, 500, Dims3, false)
	tree := New(points, boundsOf(points, Dims3))

	got := tree.SearchData(NewBox(-1000, 1000, -1000, 1000, -1000, 1000))
	require.Len(t, got, 500)
	sort.Ints(got)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestTree_DeterministicBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := randomPoints(rng, 300, Dims4, true)

	a := New(points, boundsOf(points, Dims4))
	b := New(points, boundsOf(points, Dims4))
	for q := 0; q < 50; q++ {
		region := randomRegion(rng, Dims4)
		if diff := cmp.Diff(a.SearchData(region), b.SearchData(region), sortInts); diff != "" {
			t.Fatalf("query %d differs between builds:\n%s", q, diff)
		}
	}
}

func TestTree_DoesNotAliasInput(t *testing.T) {
	points := []NodeInfo[int]{NewNodeInfo(0, 3), NewNodeInfo(1, 1), NewNodeInfo(2, 2)}
	tree := New(points, NewBox(1, 3))

	assert.Equal(t, 0, points[0].Data, "input order must be untouched")
	points[0] = NewNodeInfo(9, 100)
	assert.ElementsMatch(t, []int{0, 1, 2}, tree.SearchData(NewBox(0, 10)))
}

func TestTree_ManyDuplicates(t *testing.T) {
	points := make([]NodeInfo[int], 1000)
	for i := range points {
		points[i] = NewNodeInfo(i, 1, 1, 1, float64(i%3))
	}
	tree := New(points, boundsOf(points, Dims4))

	got := tree.SearchData(NewBox(1, 1, 1, 1, 1, 1, 0.5, 1.5))
	assert.Len(t, got, 333)
	for _, v := range got {
		assert.Equal(t, 1, v%3)
	}
}

func TestTree_Balanced(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n = 1023
	points := randomPoints(rng, n, Dims3, false)
	// Skewed coordinates must not affect depth: the split is by count.
	for i := range points {
		points[i].Coords[0] = math.Exp(points[i].Coords[0] / 10)
	}
	tree := New(points, boundsOf(points, Dims3))

	var depth func(i int32) int
	depth = func(i int32) int {
		if i == noChild {
			return 0
		}
		l, r := depth(tree.nodes[i].left), depth(tree.nodes[i].right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	assert.Equal(t, 10, depth(tree.root))
}

func TestTree_SplitInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	points := randomPoints(rng, 400, Dims4, true)
	tree := New(points, boundsOf(points, Dims4))

	var check func(i int32, depth int)
	var collect func(i int32, out *[]float64, axis int)
	collect = func(i int32, out *[]float64, axis int) {
		if i == noChild {
			return
		}
		*out = append(*out, tree.nodes[i].info.Coords[axis])
		collect(tree.nodes[i].left, out, axis)
		collect(tree.nodes[i].right, out, axis)
	}
	check = func(i int32, depth int) {
		if i == noChild {
			return
		}
		n := tree.nodes[i]
		axis := depth % Dims4
		split := n.info.Coords[axis]
		var left, right []float64
		collect(n.left, &left, axis)
		collect(n.right, &right, axis)
		for _, v := range left {
			require.LessOrEqual(t, v, split)
		}
		for _, v := range right {
			require.GreaterOrEqual(t, v, split)
		}
		require.True(t, n.region.Contains(n.info.Coords))
		check(n.left, depth+1)
		check(n.right, depth+1)
	}
	check(tree.root, 0)
}

func TestTree_BoundsWidenedToPoints(t *testing.T) {
	points := []NodeInfo[int]{NewNodeInfo(0, 0, 0, 0), NewNodeInfo(1, 50, 50, 50)}
	// Caller passes bounds that miss the second point.
	tree := New(points, NewBox(0, 1, 0, 1, 0, 1))

	assert.Equal(t, []int{1}, tree.SearchData(NewBox(49, 51, 49, 51, 49, 51)))
	b, ok := tree.Bounds()
	require.True(t, ok)
	assert.Equal(t, []float64{50, 50, 50}, b.Max)
}

func TestTree_RejectsBadRegions(t *testing.T) {
	points := []NodeInfo[int]{NewNodeInfo(0, 0, 0, 0)}
	tree := New(points, boundsOf(points, Dims3))

	assert.Nil(t, tree.Search(NewBox(-1, 1, -1, 1)), "wrong dimensionality")
	assert.Nil(t, tree.Search(Box{Min: []float64{1, 1, 1}, Max: []float64{-1, -1, -1}}), "inverted")
	assert.Len(t, tree.Search(NewBox(-1, 1, -1, 1, -1, 1)), 1)
}

func TestTree_DropsMismatchedPoints(t *testing.T) {
	points := []NodeInfo[int]{NewNodeInfo(0, 0, 0, 0), NewNodeInfo(1, 1, 1)}
	tree := New(points, NewBox(0, 1, 0, 1, 0, 1))
	assert.Equal(t, 1, tree.Len())
}

func TestTree_Clear(t *testing.T) {
	points := []NodeInfo[int]{NewNodeInfo(0, 0, 0, 0)}
	tree := New(points, boundsOf(points, Dims3))
	tree.Clear()
	assert.True(t, tree.Empty())
	assert.Nil(t, tree.Search(NewBox(-1, 1, -1, 1, -1, 1)))
}

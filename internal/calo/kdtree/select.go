package kdtree

// selectNth reorders items so items[k] holds the value that would be there if
// sorted along axis, with items[:k] <= items[k] <= items[k+1:]. Pivots are
// chosen by median of three, so the same input order always gives the same
// tree. Runs of equal coordinates (the layer axis has many) are handled by a
// three-way partition.
func selectNth[T any](items []NodeInfo[T], k, axis int) {
	lo, hi := 0, len(items)-1
	for lo < hi {
		pv := items[medianOfThree(items, lo, hi, axis)].Coords[axis]
		lt, gt := partition3(items, lo, hi, pv, axis)
		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return
		}
	}
}

func medianOfThree[T any](items []NodeInfo[T], lo, hi, axis int) int {
	mid := lo + (hi-lo)/2
	a, b, c := items[lo].Coords[axis], items[mid].Coords[axis], items[hi].Coords[axis]
	switch {
	case (a <= b && b <= c) || (c <= b && b <= a):
		return mid
	case (b <= a && a <= c) || (c <= a && a <= b):
		return lo
	default:
		return hi
	}
}

// partition3 splits items[lo:hi+1] into values below, equal to and above pv.
// On return items[lo:lt] < pv, items[lt:gt+1] == pv and items[gt+1:hi+1] > pv.
func partition3[T any](items []NodeInfo[T], lo, hi int, pv float64, axis int) (lt, gt int) {
	lt, gt = lo, hi
	i := lo
	for i <= gt {
		c := items[i].Coords[axis]
		switch {
		case c < pv:
			items[lt], items[i] = items[i], items[lt]
			lt++
			i++
		case c > pv:
			items[i], items[gt] = items[gt], items[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}

package quadtree

import (
	"container/heap"
	"sort"

	"github.com/kass/geo-munge/internal/sphere"
)

// Result pairs a matched item with its distance from the query point, in
// radians (multiply by sphere.MeanEarthRadiusMeters for meters).
type Result struct {
	Item     Item
	Distance float64
}

// searchEntry is a candidate in the best-first traversal: either an
// unexpanded node (lower bound = PointRect to its bounds) or a concrete item
// (lower bound = its true distance, already computed).
type searchEntry struct {
	lowerBound float64
	n          *node
	item       Item
}

func (e searchEntry) isItem() bool { return e.n == nil }

// searchHeap is a min-heap of searchEntry ordered by lowerBound.
type searchHeap []searchEntry

func (h searchHeap) Len() int            { return len(h) }
func (h searchHeap) Less(i, j int) bool  { return h[i].lowerBound < h[j].lowerBound }
func (h searchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *searchHeap) Push(x interface{}) { *h = append(*h, x.(searchEntry)) }
func (h *searchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	last := old[n-1]
	*h = old[:n-1]
	return last
}

func pushNode(h *searchHeap, q sphere.Point, n *node) {
	heap.Push(h, searchEntry{lowerBound: sphere.PointRect(q, n.bounds), n: n})
}

func pushExpansion(h *searchHeap, q sphere.Point, n *node) error {
	for i := 0; i < 4 && !n.isLeaf(); i++ {
		pushNode(h, q, n.child(sphere.Quadrant(i)))
	}
	for _, it := range n.data {
		d, err := sphere.Distance(q, it.Geometry())
		if err != nil {
			return ErrInvalidDistance
		}
		heap.Push(h, searchEntry{lowerBound: d, item: it})
	}
	return nil
}

// FindR runs a best-first search for the single nearest item to q within
// rMax (radians). Returns ErrOutOfBounds if q lies outside the root bounds,
// ErrEmpty if the tree holds no datums, and ErrNoneInRadius if no datum lies
// within rMax.
func (t *Tree) FindR(q sphere.Point, rMax float64) (Result, error) {
	if t.size == 0 {
		return Result{}, ErrEmpty
	}
	if !sphere.ContainsPoint(t.root.bounds, q) {
		return Result{}, ErrOutOfBounds
	}

	h := &searchHeap{}
	heap.Init(h)
	pushNode(h, q, t.root)

	for h.Len() > 0 {
		e := heap.Pop(h).(searchEntry)
		if e.isItem() {
			if e.lowerBound <= rMax {
				return Result{Item: e.item, Distance: e.lowerBound}, nil
			}
			continue
		}
		if e.lowerBound > rMax {
			continue
		}
		n := e.n
		if n.isLeaf() {
			for _, it := range n.data {
				d, err := sphere.Distance(q, it.Geometry())
				if err != nil {
					return Result{}, ErrInvalidDistance
				}
				heap.Push(h, searchEntry{lowerBound: d, item: it})
			}
			continue
		}
		if err := pushExpansion(h, q, n); err != nil {
			return Result{}, err
		}
	}
	return Result{}, ErrNoneInRadius
}

// resultHeap is a bounded max-heap (worst distance on top) used to maintain
// the running k-best results for KNNR. Ties break toward evicting the larger
// source_index, so that ascending-source_index tie-breaking survives
// truncation to k.
type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	return h[i].Item.SourceIndex() > h[j].Item.SourceIndex()
}
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	last := old[n-1]
	*h = old[:n-1]
	return last
}

// KNNR runs a best-first search for up to k nearest items to q within rMax
// (radians), sorted ascending by distance with ties broken by ascending
// source_index. Returns fewer than k results, or none, without error if the
// index doesn't contain enough in-radius matches; returns ErrOutOfBounds or
// ErrEmpty under the same conditions as FindR.
func (t *Tree) KNNR(q sphere.Point, k int, rMax float64) ([]Result, error) {
	if t.size == 0 {
		return nil, ErrEmpty
	}
	if !sphere.ContainsPoint(t.root.bounds, q) {
		return nil, ErrOutOfBounds
	}
	if k == 0 {
		return nil, nil
	}

	h := &searchHeap{}
	heap.Init(h)
	pushNode(h, q, t.root)

	results := &resultHeap{}
	heap.Init(results)

	threshold := func() float64 {
		if results.Len() < k {
			return rMax
		}
		if rMax < (*results)[0].Distance {
			return rMax
		}
		return (*results)[0].Distance
	}

	for h.Len() > 0 {
		e := heap.Pop(h).(searchEntry)
		if e.lowerBound > threshold() {
			continue
		}
		if e.isItem() {
			if e.lowerBound <= rMax {
				heap.Push(results, Result{Item: e.item, Distance: e.lowerBound})
				if results.Len() > k {
					heap.Pop(results)
				}
			}
			continue
		}
		n := e.n
		if n.isLeaf() {
			for _, it := range n.data {
				d, err := sphere.Distance(q, it.Geometry())
				if err != nil {
					return nil, ErrInvalidDistance
				}
				if d > threshold() {
					continue
				}
				heap.Push(results, Result{Item: it, Distance: d})
				if results.Len() > k {
					heap.Pop(results)
				}
			}
			continue
		}
		if err := pushExpansion(h, q, n); err != nil {
			return nil, err
		}
	}

	out := make([]Result, len(*results))
	copy(out, *results)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Item.SourceIndex() < out[j].Item.SourceIndex()
	})
	return out, nil
}

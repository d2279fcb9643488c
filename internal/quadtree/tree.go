// Package quadtree implements a hierarchical spatial index over great-circle
// geometry: a single Tree type supporting two insertion/retrieval disciplines
// (Point, Bounds), plus the best-first FindR/KNNR query engine in query.go.
package quadtree

import "github.com/kass/geo-munge/internal/sphere"

// Discipline selects how datums are placed in, and retrieved from, the tree.
type Discipline int

const (
	// DisciplinePoint admits only Point geometries; each datum lives in the
	// single leaf whose bounds contain it.
	DisciplinePoint Discipline = iota

	// DisciplineBounds admits any geometry; each datum lives at the deepest
	// node whose bounds fully contain its bounding box.
	DisciplineBounds
)

// Tree is a hierarchical spatial index. Point and Bounds indexing share node
// structure and differ only in placement rule, so they're one type branching
// on discipline rather than two types behind a wrapper interface: the hot
// insert/search paths are a field check, not a virtual call (see DESIGN.md).
type Tree struct {
	root        *node
	discipline  Discipline
	maxDepth    int
	maxChildren int
	size        int
}

// New creates a tree rooted at bounds. maxDepth must be >= 0 and maxChildren
// must be >= 1.
func New(bounds sphere.Rect, discipline Discipline, maxDepth, maxChildren int) (*Tree, error) {
	if maxDepth < 0 || maxChildren < 1 {
		return nil, ErrInvalidParams
	}
	return &Tree{
		root:        newNode(bounds, 0),
		discipline:  discipline,
		maxDepth:    maxDepth,
		maxChildren: maxChildren,
	}, nil
}

// Size returns the number of successfully inserted datums.
func (t *Tree) Size() int {
	return t.size
}

// Discipline returns the tree's discipline.
func (t *Tree) Discipline() Discipline {
	return t.discipline
}

// Bounds returns the tree's root bounds.
func (t *Tree) Bounds() sphere.Rect {
	return t.root.bounds
}

// Insert places it into the tree according to the tree's discipline.
func (t *Tree) Insert(it Item) error {
	switch t.discipline {
	case DisciplinePoint:
		if !it.Geometry().IsPoint() {
			return ErrRequiresPoint
		}
		loc := it.Representative()
		if !sphere.ContainsPoint(t.root.bounds, loc) {
			return ErrOutOfBounds
		}
		t.insertPoint(t.root, it, loc)
	case DisciplineBounds:
		bbox := it.BoundingBox()
		if !sphere.ContainsRect(t.root.bounds, bbox) {
			return ErrOutOfBounds
		}
		t.insertBounds(t.root, it, bbox)
	}
	t.size++
	return nil
}

func (t *Tree) insertPoint(n *node, it Item, loc sphere.Point) {
	if n.isLeaf() {
		n.data = append(n.data, it)
		if len(n.data) > t.maxChildren && n.depth < t.maxDepth {
			t.subdivideAndRedistributePoint(n)
		}
		return
	}
	q := n.bounds.QuadrantOf(loc)
	t.insertPoint(n.child(q), it, loc)
}

func (t *Tree) subdivideAndRedistributePoint(n *node) {
	pending := n.data
	n.data = nil
	n.subdivide()
	for _, it := range pending {
		loc := it.Representative()
		q := n.bounds.QuadrantOf(loc)
		t.insertPoint(n.child(q), it, loc)
	}
}

// quadrantTieOrder is the order insertBounds probes a node's children in.
// Children() closes every child's bounds on both sides at the midpoint
// split, so a bbox lying exactly on a split line can satisfy more than one
// child's containment test; probing south-before-north and west-before-east
// resolves that tie toward the lower/western child, the same bias QuadrantOf
// gives Point discipline for a point on a split line (§4.2).
var quadrantTieOrder = [4]sphere.Quadrant{sphere.QuadrantSW, sphere.QuadrantSE, sphere.QuadrantNW, sphere.QuadrantNE}

// insertBounds places it at the deepest node whose bounds fully contain bbox.
// If bbox spans more than one child at the current node, it stays attached
// here even though the node may already be internal.
func (t *Tree) insertBounds(n *node, it Item, bbox sphere.Rect) {
	if n.isLeaf() {
		n.data = append(n.data, it)
		if len(n.data) > t.maxChildren && n.depth < t.maxDepth {
			t.subdivideAndRedistributeBounds(n)
		}
		return
	}
	for _, q := range quadrantTieOrder {
		c := n.child(q)
		if sphere.ContainsRect(c.bounds, bbox) {
			t.insertBounds(c, it, bbox)
			return
		}
	}
	n.data = append(n.data, it)
}

func (t *Tree) subdivideAndRedistributeBounds(n *node) {
	pending := n.data
	n.data = nil
	n.subdivide()
	for _, it := range pending {
		bbox := it.BoundingBox()
		placed := false
		for _, q := range quadrantTieOrder {
			c := n.child(q)
			if sphere.ContainsRect(c.bounds, bbox) {
				t.insertBounds(c, it, bbox)
				placed = true
				break
			}
		}
		if !placed {
			n.data = append(n.data, it)
		}
	}
}

// Retrieve yields every item stored in a node whose bounds could contain a
// match for loc: under Point discipline, the path from root to loc's
// containing leaf; under Bounds discipline, additionally every ancestor's
// attached data.
func (t *Tree) Retrieve(loc sphere.Point) []Item {
	var out []Item
	n := t.root
	for {
		out = append(out, n.data...)
		if n.isLeaf() {
			return out
		}
		q := n.bounds.QuadrantOf(loc)
		n = n.child(q)
	}
}

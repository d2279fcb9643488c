package quadtree

import "github.com/kass/geo-munge/internal/sphere"

// node is a single quadtree cell. It is shared between the Point and Bounds
// disciplines; the difference between them is entirely in how Tree decides
// where to place and how to retrieve data, not in the node's shape.
//
// A leaf has children == nil. An internal node under Bounds discipline may
// still hold attached data (items whose bounding box spans its children);
// under Point discipline an internal node never holds data.
type node struct {
	bounds   sphere.Rect
	depth    int
	children *[4]*node
	data     []Item
}

func newNode(bounds sphere.Rect, depth int) *node {
	return &node{bounds: bounds, depth: depth}
}

func (n *node) isLeaf() bool {
	return n.children == nil
}

// subdivide gives n four children tiling its bounds via a midpoint split. It
// does not move n's existing data; the caller is responsible for
// redistributing it.
func (n *node) subdivide() {
	rects := n.bounds.Children()
	var children [4]*node
	for q := 0; q < 4; q++ {
		children[q] = newNode(rects[q], n.depth+1)
	}
	n.children = &children
}

func (n *node) child(q sphere.Quadrant) *node {
	return n.children[q]
}

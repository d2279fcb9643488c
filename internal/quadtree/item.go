package quadtree

import "github.com/kass/geo-munge/internal/sphere"

// Item is anything the tree can store. The datum package's Datum type is the
// production implementation; tests use lighter stand-ins.
type Item interface {
	// Geometry returns the item's geometry, used for true-distance
	// computation during search.
	Geometry() sphere.Geometry

	// Representative returns the location used to place the item under
	// Point discipline. Only called after discipline gating has established
	// that the geometry is a point.
	Representative() sphere.Point

	// BoundingBox returns the item's axis-aligned bounding box, used to
	// place it under Bounds discipline.
	BoundingBox() sphere.Rect

	// SourceIndex returns the 0-based position of the producing record in
	// the parser's emission order, used to break distance ties.
	SourceIndex() int
}

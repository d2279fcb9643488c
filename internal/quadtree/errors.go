package quadtree

import "errors"

// Sentinel errors returned by Insert, FindR, and KNNR. Callers should use
// errors.Is to test for these, since higher layers wrap them with context.
var (
	// ErrOutOfBounds is returned when a datum's location (its point under
	// Point discipline, its bounding box under Bounds discipline), or a query
	// point, is not contained in the tree's root bounds.
	ErrOutOfBounds = errors.New("quadtree: location outside root bounds")

	// ErrRequiresPoint is returned by Insert when the tree is in Point
	// discipline and the datum's geometry is not a point.
	ErrRequiresPoint = errors.New("quadtree: point discipline requires point geometry")

	// ErrEmpty is returned by FindR and KNNR when the tree holds no datums.
	ErrEmpty = errors.New("quadtree: index is empty")

	// ErrNoneInRadius is returned by FindR when no datum lies within the
	// requested radius.
	ErrNoneInRadius = errors.New("quadtree: no match within radius")

	// ErrInvalidDistance is returned when a geometry distance computation
	// encounters a degenerate input.
	ErrInvalidDistance = errors.New("quadtree: invalid distance for geometry")

	// ErrInvalidParams is returned by New when maxDepth or maxChildren are
	// out of range.
	ErrInvalidParams = errors.New("quadtree: max_depth must be >= 0 and max_children must be >= 1")
)

package quadtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/geo-munge/internal/sphere"
)

// testPoint is a lightweight Item stand-in: a point datum with no metadata.
type testPoint struct {
	geom sphere.Geometry
	idx  int
}

func newTestPoint(lngDeg, latDeg float64, idx int) *testPoint {
	return &testPoint{geom: sphere.NewPointGeometry(sphere.ToRadians(lngDeg, latDeg)), idx: idx}
}

func (p *testPoint) Geometry() sphere.Geometry    { return p.geom }
func (p *testPoint) Representative() sphere.Point { return p.geom.Point }
func (p *testPoint) BoundingBox() sphere.Rect     { return p.geom.Bounds() }
func (p *testPoint) SourceIndex() int             { return p.idx }

// testPoly wraps a polygon geometry for Bounds-discipline tests.
type testPoly struct {
	geom sphere.Geometry
	idx  int
}

func (p *testPoly) Geometry() sphere.Geometry    { return p.geom }
func (p *testPoly) Representative() sphere.Point { return sphere.Point{} }
func (p *testPoly) BoundingBox() sphere.Rect     { return p.geom.Bounds() }
func (p *testPoly) SourceIndex() int             { return p.idx }

func TestNewRejectsInvalidParams(t *testing.T) {
	bounds := sphere.GlobalBounds()
	_, err := New(bounds, DisciplinePoint, -1, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(bounds, DisciplinePoint, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestInsertOutOfBounds(t *testing.T) {
	bounds := sphere.Rect{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1}
	tr, err := New(bounds, DisciplinePoint, 10, 10)
	require.NoError(t, err)

	err = tr.Insert(newTestPoint(80, 80, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, 0, tr.Size())
}

func TestInsertRequiresPointUnderPointDiscipline(t *testing.T) {
	bounds := sphere.GlobalBounds()
	tr, err := New(bounds, DisciplinePoint, 10, 10)
	require.NoError(t, err)

	poly := &testPoly{geom: sphere.NewPolygonGeometry(sphere.Polygon{
		Outer: sphere.LineString{sphere.ToRadians(-1, -1), sphere.ToRadians(1, -1), sphere.ToRadians(1, 1), sphere.ToRadians(-1, 1)},
	})}
	err = tr.Insert(poly)
	assert.ErrorIs(t, err, ErrRequiresPoint)
}

func TestSizeTracksSuccessfulInserts(t *testing.T) {
	bounds := sphere.GlobalBounds()
	tr, err := New(bounds, DisciplinePoint, 10, 10)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Insert(newTestPoint(float64(i), float64(i), i)))
	}
	assert.Equal(t, 20, tr.Size())
}

// Concrete scenario 4: capacity bypassed at max depth.
func TestSubdivisionStopsAtMaxDepth(t *testing.T) {
	bounds := sphere.GlobalBounds()
	tr, err := New(bounds, DisciplinePoint, 2, 1)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, tr.Insert(newTestPoint(10+float64(i)*0.0001, 10+float64(i)*0.0001, i)))
	}
	assert.Equal(t, 8, tr.Size())

	results := tr.Retrieve(sphere.ToRadians(10, 10))
	assert.Len(t, results, 8, "all 8 points collapse into one leaf once max depth is reached")
}

// Concrete scenario: point exactly on a split line goes to the low-side
// child and is still retrievable from there.
func TestPointOnSplitLineGoesLowSide(t *testing.T) {
	bounds := sphere.Rect{MinLng: -2, MinLat: -2, MaxLng: 2, MaxLat: 2}
	tr, err := New(bounds, DisciplinePoint, 4, 1)
	require.NoError(t, err)

	// Force a subdivision so the split line actually exists.
	require.NoError(t, tr.Insert(newTestPoint(0, 0, 0)))
	require.NoError(t, tr.Insert(newTestPoint(1, 1, 1)))

	results := tr.Retrieve(sphere.ToRadians(0, 0))
	found := false
	for _, it := range results {
		if it.SourceIndex() == 0 {
			found = true
		}
	}
	assert.True(t, found)
}

// A degenerate bbox sitting exactly on both split lines must resolve to the
// same SW child QuadrantOf would pick for the equivalent point under Point
// discipline (§4.2's single stated tie-break rule, applied consistently
// across both disciplines).
func TestBoundsDisciplineSplitLineTieGoesLowSideLikePointDiscipline(t *testing.T) {
	bounds := sphere.Rect{MinLng: -2, MinLat: -2, MaxLng: 2, MaxLat: 2}
	tr, err := New(bounds, DisciplineBounds, 4, 1)
	require.NoError(t, err)

	// Force a subdivision so the split line actually exists.
	require.NoError(t, tr.Insert(newTestPoint(1, 1, 0)))
	require.NoError(t, tr.Insert(newTestPoint(-1, -1, 1)))

	require.NoError(t, tr.Insert(newTestPoint(0, 0, 2)))

	// Retrieve descends by QuadrantOf, which puts (0,0) in SW; the tied
	// datum is only found here if insertBounds placed it in SW too.
	results := tr.Retrieve(sphere.ToRadians(0, 0))
	found := false
	for _, it := range results {
		if it.SourceIndex() == 2 {
			found = true
		}
	}
	assert.True(t, found, "bbox tied on both split lines must land in the SW child, same as Point discipline")
}

func TestBoundsDisciplineAttachesSpanningGeometry(t *testing.T) {
	bounds := sphere.GlobalBounds()
	tr, err := New(bounds, DisciplineBounds, 10, 1)
	require.NoError(t, err)

	// A polygon spanning the whole globe's quadrants can't descend past root.
	wide := &testPoly{idx: 0, geom: sphere.NewPolygonGeometry(sphere.Polygon{
		Outer: sphere.LineString{
			sphere.ToRadians(-170, -80), sphere.ToRadians(170, -80),
			sphere.ToRadians(170, 80), sphere.ToRadians(-170, 80),
		},
	})}
	require.NoError(t, tr.Insert(wide))

	// Push enough narrow points to force subdivision.
	for i := 1; i <= 5; i++ {
		require.NoError(t, tr.Insert(newTestPoint(float64(i), float64(i), i)))
	}

	results := tr.Retrieve(sphere.ToRadians(0.5, 0.5))
	hasWide := false
	for _, it := range results {
		if it.SourceIndex() == 0 {
			hasWide = true
		}
	}
	assert.True(t, hasWide, "ancestor's attached data must still surface in Retrieve")
}
func TestNoInternalNodeHasAttachedDataUnderPointDiscipline(t *testing.T) {
	bounds := sphere.GlobalBounds()
	tr, err := New(bounds, DisciplinePoint, 10, 1)
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		require.NoError(t, tr.Insert(newTestPoint(float64(i%10), float64(i/10), i)))
	}
	assertNoInternalDataPoint(t, tr.root)
}

func assertNoInternalDataPoint(t *testing.T, n *node) {
	t.Helper()
	if n.isLeaf() {
		return
	}
	assert.Empty(t, n.data, "internal node must not hold attached data under Point discipline")
	for q := 0; q < 4; q++ {
		assertNoInternalDataPoint(t, n.child(sphere.Quadrant(q)))
	}
}

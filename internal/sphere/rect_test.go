package sphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPointInclusiveOfBoundary(t *testing.T) {
	r := Rect{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1}
	assert.True(t, ContainsPoint(r, Point{Lng: -1, Lat: 0}))
	assert.True(t, ContainsPoint(r, Point{Lng: 1, Lat: 1}))
	assert.False(t, ContainsPoint(r, Point{Lng: 1.01, Lat: 0}))
}

func TestContainsRect(t *testing.T) {
	outer := Rect{MinLng: -2, MinLat: -2, MaxLng: 2, MaxLat: 2}
	inner := Rect{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1}
	assert.True(t, ContainsRect(outer, inner))
	assert.False(t, ContainsRect(inner, outer))
}

func TestIntersects(t *testing.T) {
	a := Rect{MinLng: 0, MinLat: 0, MaxLng: 2, MaxLat: 2}
	b := Rect{MinLng: 2, MinLat: 2, MaxLng: 4, MaxLat: 4}
	assert.True(t, Intersects(a, b), "shared edge counts as intersecting")

	c := Rect{MinLng: 3, MinLat: 3, MaxLng: 4, MaxLat: 4}
	assert.False(t, Intersects(a, c))
}

func TestValid(t *testing.T) {
	assert.True(t, Rect{MinLng: -1, MaxLng: 1, MinLat: -1, MaxLat: 1}.Valid())
	assert.False(t, Rect{MinLng: 1, MaxLng: -1, MinLat: -1, MaxLat: 1}.Valid())
}

func TestChildrenTileExactlyNoGapsNoOverlap(t *testing.T) {
	r := Rect{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1}
	children := r.Children()

	assert.Equal(t, r.MinLng, children[QuadrantNW].MinLng)
	assert.Equal(t, r.MaxLat, children[QuadrantNW].MaxLat)
	assert.Equal(t, r.MaxLng, children[QuadrantSE].MaxLng)
	assert.Equal(t, r.MinLat, children[QuadrantSE].MinLat)

	mid := r.Midpoint()
	for _, c := range children {
		assert.True(t, c.Valid())
	}
	// Every child shares exactly the midpoint as one of its corners.
	assert.Equal(t, mid, Point{Lng: children[QuadrantNW].MaxLng, Lat: children[QuadrantNW].MinLat})
	assert.Equal(t, mid, Point{Lng: children[QuadrantSE].MinLng, Lat: children[QuadrantSE].MaxLat})
}

func TestQuadrantOfTieBreaksLowSide(t *testing.T) {
	r := Rect{MinLng: -2, MinLat: -2, MaxLng: 2, MaxLat: 2}
	onSplit := Point{Lng: 0, Lat: 0}
	assert.Equal(t, QuadrantSW, r.QuadrantOf(onSplit))

	assert.Equal(t, QuadrantNW, r.QuadrantOf(Point{Lng: -1, Lat: 1}))
	assert.Equal(t, QuadrantNE, r.QuadrantOf(Point{Lng: 1, Lat: 1}))
	assert.Equal(t, QuadrantSE, r.QuadrantOf(Point{Lng: 1, Lat: -1}))
}

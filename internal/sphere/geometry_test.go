package sphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometryKindPredicates(t *testing.T) {
	p := NewPointGeometry(ToRadians(1, 1))
	assert.True(t, p.IsPoint())

	ls := NewLineStringGeometry(LineString{ToRadians(0, 0), ToRadians(1, 1)})
	assert.False(t, ls.IsPoint())
}

func TestBoundsOfPoint(t *testing.T) {
	p := ToRadians(3, 4)
	g := NewPointGeometry(p)
	r := g.Bounds()
	assert.Equal(t, p.Lng, r.MinLng)
	assert.Equal(t, p.Lng, r.MaxLng)
	assert.Equal(t, p.Lat, r.MinLat)
	assert.Equal(t, p.Lat, r.MaxLat)
}

func TestBoundsOfLineString(t *testing.T) {
	ls := LineString{ToRadians(-1, 5), ToRadians(3, -2), ToRadians(0, 0)}
	g := NewLineStringGeometry(ls)
	r := g.Bounds()
	assert.Equal(t, ToRadians(-1, 0).Lng, r.MinLng)
	assert.Equal(t, ToRadians(3, 0).Lng, r.MaxLng)
	assert.Equal(t, ToRadians(0, -2).Lat, r.MinLat)
	assert.Equal(t, ToRadians(0, 5).Lat, r.MaxLat)
}

func TestBoundsOfPolygonUsesOuterRingOnly(t *testing.T) {
	outer := LineString{ToRadians(-1, -1), ToRadians(1, -1), ToRadians(1, 1), ToRadians(-1, 1)}
	hole := LineString{ToRadians(-10, -10), ToRadians(10, -10), ToRadians(10, 10), ToRadians(-10, 10)}
	g := NewPolygonGeometry(Polygon{Outer: outer, Inners: []LineString{hole}})
	r := g.Bounds()
	assert.Equal(t, ToRadians(-1, 0).Lng, r.MinLng)
	assert.Equal(t, ToRadians(1, 0).Lng, r.MaxLng)
}

package sphere

import (
	"errors"
	"math"
)

// ErrInvalidDistance is returned when a distance computation encounters a
// degenerate geometry, such as an empty linestring or an outer ring with
// fewer than three points.
var ErrInvalidDistance = errors.New("sphere: invalid geometry for distance computation")

// clampAsin keeps the argument to math.Asin in its valid domain; floating
// point error can push a cosine-derived value a hair outside [-1, 1].
func clampAsin(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Haversine returns the great-circle angular distance between a and b, in
// radians, on a unit sphere. Uses the atan2 form to avoid precision loss for
// points close together.
func Haversine(a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(a.Lat)*math.Cos(b.Lat)*sinDLng*sinDLng
	h = math.Max(0, math.Min(1, h))
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointPoint is an alias for Haversine, named to match the other Point*
// distance primitives in this file.
func PointPoint(a, b Point) float64 {
	return Haversine(a, b)
}

// PointSegment returns the distance from p to the great-circle segment a-b,
// clamped to the segment's endpoints.
func PointSegment(p, a, b Point) float64 {
	if a == b {
		return Haversine(p, a)
	}

	distAB := Haversine(a, b)
	if distAB == 0 {
		return Haversine(p, a)
	}

	// Cross-track distance from p to the great circle through a and b.
	distAP := Haversine(a, p)
	bearingAB := initialBearing(a, b)
	bearingAP := initialBearing(a, p)

	crossTrack := math.Asin(clampAsin(math.Sin(distAP) * math.Sin(bearingAP-bearingAB)))

	// Along-track distance: how far along a-b the closest point lies,
	// negative when p projects behind a.
	alongTrack := math.Acos(clampAsin(math.Cos(distAP) / math.Cos(crossTrack)))
	if math.IsNaN(alongTrack) {
		alongTrack = 0
	}
	if math.Cos(bearingAP-bearingAB) < 0 {
		alongTrack = -alongTrack
	}

	switch {
	case alongTrack <= 0:
		return Haversine(p, a)
	case alongTrack >= distAB:
		return Haversine(p, b)
	default:
		return math.Abs(crossTrack)
	}
}

func initialBearing(a, b Point) float64 {
	dLng := b.Lng - a.Lng
	y := math.Sin(dLng) * math.Cos(b.Lat)
	x := math.Cos(a.Lat)*math.Sin(b.Lat) - math.Sin(a.Lat)*math.Cos(b.Lat)*math.Cos(dLng)
	return math.Atan2(y, x)
}

// PointLineString returns the minimum PointSegment distance over ls's
// consecutive vertex pairs. Returns ErrInvalidDistance if ls has fewer than
// two points.
func PointLineString(p Point, ls LineString) (float64, error) {
	if len(ls) < 2 {
		return 0, ErrInvalidDistance
	}
	best := math.Inf(1)
	for i := 0; i < len(ls)-1; i++ {
		d := PointSegment(p, ls[i], ls[i+1])
		if d < best {
			best = d
		}
	}
	return best, nil
}

// ringContains reports whether p lies inside the closed ring using an
// even-odd ray-crossing test in longitude/latitude coordinates, treated as a
// plane; ring edges are straight lines in that plane, not great-circle arcs.
// The ring is treated as implicitly closed (last point need not repeat the
// first).
func ringContains(ring LineString, p Point) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[j], ring[i]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			lngAtLat := a.Lng + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lng-a.Lng)
			if p.Lng < lngAtLat {
				inside = !inside
			}
		}
	}
	return inside
}

// PointPolygon returns 0 if p is inside the outer ring and outside every
// inner ring, otherwise the minimum distance to any ring treated as a
// linestring. Returns ErrInvalidDistance if the outer ring is degenerate.
func PointPolygon(p Point, poly Polygon) (float64, error) {
	if len(poly.Outer) < 3 {
		return 0, ErrInvalidDistance
	}

	if ringContains(poly.Outer, p) {
		inHole := false
		for _, inner := range poly.Inners {
			if ringContains(inner, p) {
				inHole = true
				break
			}
		}
		if !inHole {
			return 0, nil
		}
	}

	best, err := PointLineString(p, closedRing(poly.Outer))
	if err != nil {
		return 0, err
	}
	for _, inner := range poly.Inners {
		if len(inner) < 2 {
			continue
		}
		d, err := PointLineString(p, closedRing(inner))
		if err != nil {
			continue
		}
		if d < best {
			best = d
		}
	}
	return best, nil
}

func closedRing(ring LineString) LineString {
	if len(ring) == 0 || ring[0] == ring[len(ring)-1] {
		return ring
	}
	closed := make(LineString, len(ring)+1)
	copy(closed, ring)
	closed[len(ring)] = ring[0]
	return closed
}

// PointRect returns 0 if p is within r, otherwise the minimum PointSegment
// distance over r's four edges. This is the lower-bound function used to
// prioritize node expansion during best-first search.
func PointRect(p Point, r Rect) float64 {
	if ContainsPoint(r, p) {
		return 0
	}
	corners := [4]Point{
		{Lng: r.MinLng, Lat: r.MinLat},
		{Lng: r.MaxLng, Lat: r.MinLat},
		{Lng: r.MaxLng, Lat: r.MaxLat},
		{Lng: r.MinLng, Lat: r.MaxLat},
	}
	best := math.Inf(1)
	for i := 0; i < 4; i++ {
		d := PointSegment(p, corners[i], corners[(i+1)%4])
		if d < best {
			best = d
		}
	}
	return best
}

// Distance dispatches to the appropriate primitive for g's variant.
func Distance(p Point, g Geometry) (float64, error) {
	switch g.Kind {
	case KindPoint:
		return Haversine(p, g.Point), nil
	case KindLineString:
		return PointLineString(p, g.LineString)
	case KindPolygon:
		return PointPolygon(p, g.Polygon)
	default:
		return 0, ErrInvalidDistance
	}
}

// Package config resolves the command-line surface into a validated run
// configuration: bounding-box precedence, delimiter handling, and the
// quadtree's depth/capacity defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kass/geo-munge/internal/quadtree"
	"github.com/kass/geo-munge/internal/sphere"
)

// Defaults for the quadtree's shape parameters.
const (
	DefaultMaxDepth    = 10
	DefaultMaxChildren = 10
)

var (
	// ErrInvalidDelimiter flags a delimiter flag that isn't exactly one byte.
	ErrInvalidDelimiter = errors.New("config: delimiter must be a single byte")
	// ErrMalformedBBox flags a --bbox argument that doesn't parse as four
	// comma-separated numbers.
	ErrMalformedBBox = errors.New("config: malformed bbox, want lng_min,lat_min,lng_max,lat_max")
)

// Settings is the resolved configuration for one run of the query pipeline.
type Settings struct {
	ReferenceFile string
	K             int
	RadiusMeters  float64 // 0 means unbounded
	MaxDepth      int
	MaxChildren   int
	Discipline    quadtree.Discipline
	Fields        []string
	Delimiter     byte
	SingleThread  bool
	Verbose       bool
	PrintSummary  bool

	// Bounds is resolved before the tree is built; see ResolveBounds.
	Bounds sphere.Rect
}

// ParseDelimiter validates a delimiter flag value, which must decode to
// exactly one byte. The empty string means "not supplied" and falls back to
// the default comma.
func ParseDelimiter(raw string) (byte, error) {
	if raw == "" {
		return ',', nil
	}
	if len(raw) != 1 {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidDelimiter, raw)
	}
	return raw[0], nil
}

// ParseBBox parses an explicit --bbox argument: four comma-separated degree
// values, no spaces, in lng_min,lat_min,lng_max,lat_max order.
func ParseBBox(raw string) (sphere.Rect, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return sphere.Rect{}, ErrMalformedBBox
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return sphere.Rect{}, fmt.Errorf("%w: %v", ErrMalformedBBox, err)
		}
		vals[i] = v
	}
	min := sphere.ToRadians(vals[0], vals[1])
	max := sphere.ToRadians(vals[2], vals[3])
	r := sphere.Rect{MinLng: min.Lng, MinLat: min.Lat, MaxLng: max.Lng, MaxLat: max.Lat}
	if !r.Valid() {
		return sphere.Rect{}, fmt.Errorf("%w: min exceeds max", ErrMalformedBBox)
	}
	return r, nil
}

// ResolveBounds implements the bounding-box precedence: an explicit bbox
// argument wins outright, then the --sphere flag, then the source file's own
// embedded bbox, and finally the full globe.
func ResolveBounds(explicit *sphere.Rect, sphereFlag bool, sourceBounds *sphere.Rect) sphere.Rect {
	switch {
	case explicit != nil:
		return *explicit
	case sphereFlag:
		return sphere.GlobalBounds()
	case sourceBounds != nil:
		return *sourceBounds
	default:
		return sphere.GlobalBounds()
	}
}

// Package datum implements the format-agnostic Datum façade the quadtree
// indexes: a geometry, the source record's position in its parser's
// emission order, and an opaque handle used to project metadata fields.
package datum

import "github.com/kass/geo-munge/internal/sphere"

// Record is implemented once per reference-dataset format (CSV, GeoJSON,
// Shapefile, KML) and projects the native record's fields by name. Unknown
// fields project to the empty string.
type Record interface {
	Project(fields []string) []string
}

// Datum is the indexed unit: {geometry, source_index, metadata_handle}. It
// is immutable once constructed and safe to read from multiple goroutines,
// since metadata_handle implementations are themselves read-only.
type Datum struct {
	geometry    sphere.Geometry
	sourceIndex int
	record      Record
}

// New constructs a Datum. record may be nil, in which case Project always
// returns empty strings (used by synthetic/test data with no metadata).
func New(geom sphere.Geometry, sourceIndex int, record Record) *Datum {
	return &Datum{geometry: geom, sourceIndex: sourceIndex, record: record}
}

// Geometry returns a view of the datum's geometry.
func (d *Datum) Geometry() sphere.Geometry {
	return d.geometry
}

// Representative returns the datum's point. Precondition: only valid when
// the datum's geometry is a Point, which Point-discipline insertion already
// guarantees before this is ever called; calling it on a non-point datum
// panics.
func (d *Datum) Representative() sphere.Point {
	if d.geometry.Kind != sphere.KindPoint {
		panic("datum: Representative called on non-point geometry")
	}
	return d.geometry.Point
}

// BoundingBox returns the datum's axis-aligned bounding box.
func (d *Datum) BoundingBox() sphere.Rect {
	return d.geometry.Bounds()
}

// SourceIndex returns the 0-based position of the producing record in the
// parser's emission order. Multi-geometry expansions share one source index.
func (d *Datum) SourceIndex() int {
	return d.sourceIndex
}

// Project yields one string per requested field, in order, substituting the
// empty string for fields the underlying record doesn't have.
func (d *Datum) Project(fields []string) []string {
	if d.record == nil {
		out := make([]string, len(fields))
		return out
	}
	return d.record.Project(fields)
}

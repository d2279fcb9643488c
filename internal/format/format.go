// Package format implements the reference-dataset readers. Each reader
// yields a stream of datums plus, where the format carries one, an embedded
// bounding box for the bbox-resolution precedence in package config.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/sphere"
)

// ErrUnsupportedExtension is a fatal configuration error: the reference file
// has no recognized format.
var ErrUnsupportedExtension = errors.New("format: unsupported reference file extension")

// IngestError is a non-fatal per-record error: the driver continues with the
// next record, and writes it to stderr (via its Error() string) only when run
// with -v; without -v it is not reported.
type IngestError struct {
	SourceIndex int
	Err         error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("record %d: %v", e.SourceIndex, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Dataset is the result of reading a reference file: the successfully
// parsed datums, any per-record ingest errors encountered along the way,
// and the format's embedded bounding box, if it carries one.
type Dataset struct {
	Datums []*datum.Datum
	Errors []*IngestError
	Bounds *sphere.Rect
}

// Open reads path, dispatching on its extension: shp, json/geojson, kml/kmz,
// csv.
func Open(path string) (*Dataset, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "csv":
		return ReadCSV(path)
	case "json", "geojson":
		return ReadGeoJSON(path)
	case "kml", "kmz":
		return ReadKML(path)
	case "shp":
		return ReadShapefile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// errUnsupportedGeometry marks a feature this package declines to index:
// Null geometry, MultiPatch, or a nested multi-geometry (multi-geometry of
// multi-geometries).
var errUnsupportedGeometry = errors.New("format: unsupported geometry (null, multipatch, or nested multi-geometry)")

var errMissingGeometry = errors.New("format: feature has no geometry")

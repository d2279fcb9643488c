package format

import (
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/sphere"
)

// geojsonRecord projects a Feature's Properties map by key.
type geojsonRecord struct {
	properties map[string]interface{}
}

func (r *geojsonRecord) Project(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, ok := r.properties[f]
		if !ok || v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func geojsonPoint(coords []float64) sphere.Point {
	return sphere.ToRadians(coords[0], coords[1])
}

func geojsonLineString(coords [][]float64) sphere.LineString {
	ls := make(sphere.LineString, len(coords))
	for i, c := range coords {
		ls[i] = geojsonPoint(c)
	}
	return ls
}

func geojsonPolygon(rings [][][]float64) sphere.Polygon {
	poly := sphere.Polygon{}
	if len(rings) > 0 {
		poly.Outer = geojsonLineString(rings[0])
	}
	for _, ring := range rings[1:] {
		poly.Inners = append(poly.Inners, geojsonLineString(ring))
	}
	return poly
}

// geojsonGeometries flattens a Feature's geometry into the set of simple
// geometries to index: multi-geometries are flattened into multiple datums
// sharing one source index. GeometryCollection and nested multi-geometries
// are rejected as unsupported.
func geojsonGeometries(g *geojson.Geometry) ([]sphere.Geometry, error) {
	if g == nil {
		return nil, errMissingGeometry
	}
	switch g.Type {
	case geojson.GeometryPoint:
		return []sphere.Geometry{sphere.NewPointGeometry(geojsonPoint(g.Point))}, nil
	case geojson.GeometryMultiPoint:
		out := make([]sphere.Geometry, len(g.MultiPoint))
		for i, c := range g.MultiPoint {
			out[i] = sphere.NewPointGeometry(geojsonPoint(c))
		}
		return out, nil
	case geojson.GeometryLineString:
		return []sphere.Geometry{sphere.NewLineStringGeometry(geojsonLineString(g.LineString))}, nil
	case geojson.GeometryMultiLineString:
		out := make([]sphere.Geometry, len(g.MultiLineString))
		for i, ls := range g.MultiLineString {
			out[i] = sphere.NewLineStringGeometry(geojsonLineString(ls))
		}
		return out, nil
	case geojson.GeometryPolygon:
		return []sphere.Geometry{sphere.NewPolygonGeometry(geojsonPolygon(g.Polygon))}, nil
	case geojson.GeometryMultiPolygon:
		out := make([]sphere.Geometry, len(g.MultiPolygon))
		for i, poly := range g.MultiPolygon {
			out[i] = sphere.NewPolygonGeometry(geojsonPolygon(poly))
		}
		return out, nil
	default:
		return nil, errUnsupportedGeometry
	}
}

// ReadGeoJSON reads a GeoJSON FeatureCollection, flattening multi-geometries
// and using the top-level bbox member, if present, as the embedded bounds.
func ReadGeoJSON(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	if len(fc.BoundingBox) == 4 {
		min := sphere.ToRadians(fc.BoundingBox[0], fc.BoundingBox[1])
		max := sphere.ToRadians(fc.BoundingBox[2], fc.BoundingBox[3])
		ds.Bounds = &sphere.Rect{MinLng: min.Lng, MinLat: min.Lat, MaxLng: max.Lng, MaxLat: max.Lat}
	}

	for i, feature := range fc.Features {
		geoms, gErr := geojsonGeometries(feature.Geometry)
		if gErr != nil {
			ds.Errors = append(ds.Errors, &IngestError{SourceIndex: i, Err: gErr})
			continue
		}
		record := &geojsonRecord{properties: feature.Properties}
		for _, g := range geoms {
			ds.Datums = append(ds.Datums, datum.New(g, i, record))
		}
	}

	return ds, nil
}

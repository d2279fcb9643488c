package format

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/sphere"
)

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlExtendedData struct {
	Data []kmlData `xml:"Data"`
}

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlBoundary struct {
	LinearRing kmlCoords `xml:"LinearRing"`
}

type kmlPolygon struct {
	OuterBoundaryIs kmlBoundary   `xml:"outerBoundaryIs"`
	InnerBoundaryIs []kmlBoundary `xml:"innerBoundaryIs"`
}

type kmlMultiGeometry struct {
	Point      []kmlCoords  `xml:"Point"`
	LineString []kmlCoords  `xml:"LineString"`
	Polygon    []kmlPolygon `xml:"Polygon"`
}

type kmlPlacemark struct {
	Name          string            `xml:"name"`
	ExtendedData  *kmlExtendedData  `xml:"ExtendedData"`
	Point         *kmlCoords        `xml:"Point"`
	LineString    *kmlCoords        `xml:"LineString"`
	Polygon       *kmlPolygon       `xml:"Polygon"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlFolder struct {
	Placemark []kmlPlacemark `xml:"Placemark"`
	Folder    []kmlFolder    `xml:"Folder"`
}

type kmlDocument struct {
	Placemark []kmlPlacemark `xml:"Placemark"`
	Folder    []kmlFolder    `xml:"Folder"`
}

type kmlRoot struct {
	XMLName   xml.Name       `xml:"kml"`
	Document  kmlDocument    `xml:"Document"`
	Placemark []kmlPlacemark `xml:"Placemark"`
}

// kmlRecord projects a placemark's name plus its ExtendedData name/value
// pairs.
type kmlRecord struct {
	fields map[string]string
}

func (r *kmlRecord) Project(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = r.fields[f]
	}
	return out
}

func collectFolderPlacemarks(f kmlFolder) []kmlPlacemark {
	out := append([]kmlPlacemark{}, f.Placemark...)
	for _, sub := range f.Folder {
		out = append(out, collectFolderPlacemarks(sub)...)
	}
	return out
}

func collectPlacemarks(root kmlRoot) []kmlPlacemark {
	out := append([]kmlPlacemark{}, root.Placemark...)
	out = append(out, root.Document.Placemark...)
	for _, sub := range root.Document.Folder {
		out = append(out, collectFolderPlacemarks(sub)...)
	}
	return out
}

func parseKmlCoordinateList(s string) (sphere.LineString, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return nil, errUnsupportedGeometry
	}
	ls := make(sphere.LineString, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lng, errLng := strconv.ParseFloat(parts[0], 64)
		lat, errLat := strconv.ParseFloat(parts[1], 64)
		if errLng != nil || errLat != nil {
			continue
		}
		ls = append(ls, sphere.ToRadians(lng, lat))
	}
	if len(ls) == 0 {
		return nil, errUnsupportedGeometry
	}
	return ls, nil
}

func kmlPolygonGeometry(p kmlPolygon) (sphere.Geometry, error) {
	outer, err := parseKmlCoordinateList(p.OuterBoundaryIs.LinearRing.Coordinates)
	if err != nil {
		return sphere.Geometry{}, err
	}
	poly := sphere.Polygon{Outer: outer}
	for _, inner := range p.InnerBoundaryIs {
		ls, err := parseKmlCoordinateList(inner.LinearRing.Coordinates)
		if err == nil {
			poly.Inners = append(poly.Inners, ls)
		}
	}
	return sphere.NewPolygonGeometry(poly), nil
}

// kmlGeometries flattens a placemark's geometry (including a single level of
// MultiGeometry) into simple geometries sharing one source index. A
// MultiGeometry nested inside another MultiGeometry is not modeled by this
// reader's XML bindings and is therefore never encountered.
func kmlGeometries(p kmlPlacemark) ([]sphere.Geometry, error) {
	switch {
	case p.Point != nil:
		ls, err := parseKmlCoordinateList(p.Point.Coordinates)
		if err != nil {
			return nil, err
		}
		return []sphere.Geometry{sphere.NewPointGeometry(ls[0])}, nil
	case p.LineString != nil:
		ls, err := parseKmlCoordinateList(p.LineString.Coordinates)
		if err != nil {
			return nil, err
		}
		return []sphere.Geometry{sphere.NewLineStringGeometry(ls)}, nil
	case p.Polygon != nil:
		g, err := kmlPolygonGeometry(*p.Polygon)
		if err != nil {
			return nil, err
		}
		return []sphere.Geometry{g}, nil
	case p.MultiGeometry != nil:
		var out []sphere.Geometry
		for _, pt := range p.MultiGeometry.Point {
			ls, err := parseKmlCoordinateList(pt.Coordinates)
			if err == nil {
				out = append(out, sphere.NewPointGeometry(ls[0]))
			}
		}
		for _, ls := range p.MultiGeometry.LineString {
			coords, err := parseKmlCoordinateList(ls.Coordinates)
			if err == nil {
				out = append(out, sphere.NewLineStringGeometry(coords))
			}
		}
		for _, poly := range p.MultiGeometry.Polygon {
			g, err := kmlPolygonGeometry(poly)
			if err == nil {
				out = append(out, g)
			}
		}
		if len(out) == 0 {
			return nil, errUnsupportedGeometry
		}
		return out, nil
	default:
		return nil, errMissingGeometry
	}
}

// ReadKML reads a .kml document, or the first .kml entry inside a .kmz
// archive. KML carries no standard embedded bounding box, so the reference
// dataset falls back to the full globe.
func ReadKML(path string) (*Dataset, error) {
	raw, err := readKmlBytes(path)
	if err != nil {
		return nil, err
	}

	var root kmlRoot
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}

	ds := &Dataset{}
	for i, pm := range collectPlacemarks(root) {
		geoms, gErr := kmlGeometries(pm)
		if gErr != nil {
			ds.Errors = append(ds.Errors, &IngestError{SourceIndex: i, Err: gErr})
			continue
		}
		fields := map[string]string{"name": pm.Name}
		if pm.ExtendedData != nil {
			for _, d := range pm.ExtendedData.Data {
				fields[d.Name] = d.Value
			}
		}
		rec := &kmlRecord{fields: fields}
		for _, g := range geoms {
			ds.Datums = append(ds.Datums, datum.New(g, i, rec))
		}
	}
	return ds, nil
}

func readKmlBytes(path string) ([]byte, error) {
	if !strings.EqualFold(pathExt(path), ".kmz") {
		return os.ReadFile(path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if strings.EqualFold(pathExt(f.Name), ".kml") {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, errMissingGeometry
}

func pathExt(p string) string {
	idx := strings.LastIndexByte(p, '.')
	if idx < 0 {
		return ""
	}
	return p[idx:]
}

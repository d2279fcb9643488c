package format

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/sphere"
)

// ESRI shapefile shape type codes this reader understands. Z/M variants and
// MultiPatch (31) are rejected as unsupported geometry.
const (
	shpNullShape  = 0
	shpPoint      = 1
	shpPolyLine   = 3
	shpPolygon    = 5
	shpMultiPoint = 8
	shpMultiPatch = 31
)

var errUnsupportedShapeType = errors.New("format: unsupported shapefile shape type")

// shapefileRecord projects a .dbf row's fields by (case-insensitive) name.
type shapefileRecord struct {
	fields map[string]string
}

func (r *shapefileRecord) Project(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if v, ok := r.fields[strings.ToUpper(f)]; ok {
			out[i] = v
		}
	}
	return out
}

// ReadShapefile reads the .shp/.dbf pair sharing path's base name. The
// header's bounding box becomes the embedded bounds.
func ReadShapefile(path string) (*Dataset, error) {
	shapes, bounds, err := readShp(path)
	if err != nil {
		return nil, err
	}

	dbfPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	records, dbfErr := readDbf(dbfPath)
	if dbfErr != nil {
		// A missing/unreadable dbf still allows geometry-only indexing;
		// metadata fields simply project empty.
		records = nil
	}

	ds := &Dataset{Bounds: &bounds}
	for i, sh := range shapes {
		if sh.err != nil {
			ds.Errors = append(ds.Errors, &IngestError{SourceIndex: i, Err: sh.err})
			continue
		}
		var rec datum.Record
		if records != nil && i < len(records) {
			rec = &shapefileRecord{fields: records[i]}
		}
		for _, g := range sh.geoms {
			ds.Datums = append(ds.Datums, datum.New(g, i, rec))
		}
	}
	return ds, nil
}

type shpShape struct {
	geoms []sphere.Geometry
	err   error
}

func readShp(path string) ([]shpShape, sphere.Rect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sphere.Rect{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]byte, 100)
	if _, err := readFull(r, header); err != nil {
		return nil, sphere.Rect{}, fmt.Errorf("format: reading shapefile header: %w", err)
	}

	minLng := littleFloat64(header[36:44])
	minLat := littleFloat64(header[44:52])
	maxLng := littleFloat64(header[52:60])
	maxLat := littleFloat64(header[60:68])
	min := sphere.ToRadians(minLng, minLat)
	max := sphere.ToRadians(maxLng, maxLat)
	bounds := sphere.Rect{MinLng: min.Lng, MinLat: min.Lat, MaxLng: max.Lng, MaxLat: max.Lat}

	var shapes []shpShape
	for {
		recHeader := make([]byte, 8)
		if _, err := readFull(r, recHeader); err != nil {
			break // EOF: no more records
		}
		contentWords := binary.BigEndian.Uint32(recHeader[4:8])
		content := make([]byte, int(contentWords)*2)
		if _, err := readFull(r, content); err != nil {
			shapes = append(shapes, shpShape{err: fmt.Errorf("format: truncated shapefile record: %w", err)})
			break
		}
		geoms, err := parseShapeContent(content)
		shapes = append(shapes, shpShape{geoms: geoms, err: err})
	}
	return shapes, bounds, nil
}

func parseShapeContent(content []byte) ([]sphere.Geometry, error) {
	if len(content) < 4 {
		return nil, errUnsupportedShapeType
	}
	shapeType := binary.LittleEndian.Uint32(content[0:4])
	body := content[4:]

	switch shapeType {
	case shpNullShape:
		return nil, errUnsupportedGeometry
	case shpPoint:
		if len(body) < 16 {
			return nil, errUnsupportedShapeType
		}
		lng := littleFloat64(body[0:8])
		lat := littleFloat64(body[8:16])
		return []sphere.Geometry{sphere.NewPointGeometry(sphere.ToRadians(lng, lat))}, nil
	case shpMultiPoint:
		if len(body) < 36 {
			return nil, errUnsupportedShapeType
		}
		numPoints := int(binary.LittleEndian.Uint32(body[32:36]))
		out := make([]sphere.Geometry, 0, numPoints)
		off := 36
		for i := 0; i < numPoints && off+16 <= len(body); i++ {
			lng := littleFloat64(body[off : off+8])
			lat := littleFloat64(body[off+8 : off+16])
			out = append(out, sphere.NewPointGeometry(sphere.ToRadians(lng, lat)))
			off += 16
		}
		return out, nil
	case shpPolyLine:
		parts, points, err := readPartsAndPoints(body)
		if err != nil {
			return nil, err
		}
		out := make([]sphere.Geometry, 0, len(parts))
		for _, ring := range splitParts(parts, points) {
			out = append(out, sphere.NewLineStringGeometry(ring))
		}
		return out, nil
	case shpPolygon:
		parts, points, err := readPartsAndPoints(body)
		if err != nil {
			return nil, err
		}
		return buildPolygons(splitParts(parts, points)), nil
	case shpMultiPatch:
		return nil, errUnsupportedGeometry
	default:
		return nil, errUnsupportedShapeType
	}
}

func readPartsAndPoints(body []byte) (parts []int, points []sphere.Point, err error) {
	if len(body) < 36 {
		return nil, nil, errUnsupportedShapeType
	}
	numParts := int(binary.LittleEndian.Uint32(body[32:36]))
	numPoints := int(binary.LittleEndian.Uint32(body[36:40]))
	off := 40
	parts = make([]int, numParts)
	for i := 0; i < numParts; i++ {
		parts[i] = int(binary.LittleEndian.Uint32(body[off : off+4]))
		off += 4
	}
	points = make([]sphere.Point, numPoints)
	for i := 0; i < numPoints; i++ {
		lng := littleFloat64(body[off : off+8])
		lat := littleFloat64(body[off+8 : off+16])
		points[i] = sphere.ToRadians(lng, lat)
		off += 16
	}
	return parts, points, nil
}

func splitParts(parts []int, points []sphere.Point) []sphere.LineString {
	rings := make([]sphere.LineString, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		rings = append(rings, sphere.LineString(points[start:end]))
	}
	return rings
}

// buildPolygons groups shapefile rings into polygons by ESRI winding
// convention (clockwise = outer ring, counterclockwise = hole), flattening
// multi-ring (multipolygon) shapes into multiple geometries sharing one
// source index, the same as any other multi-geometry.
func buildPolygons(rings []sphere.LineString) []sphere.Geometry {
	var out []sphere.Geometry
	var current *sphere.Polygon
	for _, ring := range rings {
		if signedArea(ring) < 0 { // clockwise: new outer ring
			if current != nil {
				out = append(out, sphere.NewPolygonGeometry(*current))
			}
			current = &sphere.Polygon{Outer: ring}
		} else if current != nil {
			current.Inners = append(current.Inners, ring)
		} else {
			current = &sphere.Polygon{Outer: ring}
		}
	}
	if current != nil {
		out = append(out, sphere.NewPolygonGeometry(*current))
	}
	return out
}

func signedArea(ring sphere.LineString) float64 {
	var sum float64
	for i := 0; i < len(ring); i++ {
		j := (i + 1) % len(ring)
		sum += ring[i].Lng*ring[j].Lat - ring[j].Lng*ring[i].Lat
	}
	return sum / 2
}

func littleFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// readDbf reads a .dbf file's records, keyed by field name (uppercased).
func readDbf(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]byte, 32)
	if _, err := readFull(r, header); err != nil {
		return nil, err
	}
	numRecords := int(binary.LittleEndian.Uint32(header[4:8]))
	headerBytes := int(binary.LittleEndian.Uint16(header[8:10]))
	recordBytes := int(binary.LittleEndian.Uint16(header[10:12]))

	numFieldDescriptors := (headerBytes - 32 - 1) / 32
	type fieldDesc struct {
		name   string
		length int
	}
	fields := make([]fieldDesc, 0, numFieldDescriptors)
	for i := 0; i < numFieldDescriptors; i++ {
		desc := make([]byte, 32)
		if _, err := readFull(r, desc); err != nil {
			return nil, err
		}
		name := strings.ToUpper(strings.TrimRight(string(desc[0:11]), "\x00"))
		length := int(desc[16])
		fields = append(fields, fieldDesc{name: name, length: length})
	}
	// Consume the terminator byte (0x0D).
	if _, err := r.Discard(1); err != nil {
		return nil, err
	}

	records := make([]map[string]string, 0, numRecords)
	for i := 0; i < numRecords; i++ {
		row := make([]byte, recordBytes)
		if _, err := readFull(r, row); err != nil {
			break
		}
		rec := make(map[string]string, len(fields))
		off := 1 // skip deletion flag
		for _, fd := range fields {
			end := off + fd.length
			if end > len(row) {
				break
			}
			rec[fd.name] = strings.TrimSpace(string(row[off:end]))
			off = end
		}
		records = append(records, rec)
	}
	return records, nil
}


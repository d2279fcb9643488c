package format

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/sphere"
)

// ErrMissingLatLngHeader is a fatal configuration error: the CSV header has
// no lng/lat columns.
var ErrMissingLatLngHeader = errors.New("format: csv header missing lng/lat columns")

// ErrCannotParseCoordinate is a non-fatal per-record ingest error.
var ErrCannotParseCoordinate = errors.New("format: cannot parse lng/lat as a number")

// csvRecord projects a reference CSV row's columns by (lowercased) header
// name. The row is retained in full so every non-geometry column, including
// "id", is projectable.
type csvRecord struct {
	header map[string]int
	row    []string
}

func (r *csvRecord) Project(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		idx, ok := r.header[strings.ToLower(f)]
		if !ok || idx >= len(r.row) {
			continue
		}
		out[i] = r.row[idx]
	}
	return out
}

// ReadCSV reads a reference-dataset CSV file: a header row naming, among
// other columns, "lng" and "lat" (case-insensitive, mandatory), treats every
// data row as a Point datum, and carries no embedded bounding box.
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	headerRow, err := r.Read()
	if err != nil {
		return nil, err
	}

	header := make(map[string]int, len(headerRow))
	lngIdx, latIdx := -1, -1
	for i, h := range headerRow {
		lower := strings.ToLower(strings.TrimSpace(h))
		header[lower] = i
		if lower == "lng" {
			lngIdx = i
		}
		if lower == "lat" {
			latIdx = i
		}
	}
	if lngIdx < 0 || latIdx < 0 {
		return nil, ErrMissingLatLngHeader
	}

	ds := &Dataset{}
	index := 0
	for {
		row, readErr := r.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			ds.Errors = append(ds.Errors, &IngestError{SourceIndex: index, Err: readErr})
			index++
			continue
		}

		lng, errLng := strconv.ParseFloat(strings.TrimSpace(row[lngIdx]), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		if errLng != nil || errLat != nil {
			ds.Errors = append(ds.Errors, &IngestError{SourceIndex: index, Err: ErrCannotParseCoordinate})
			index++
			continue
		}

		geom := sphere.NewPointGeometry(sphere.ToRadians(lng, lat))
		ds.Datums = append(ds.Datums, datum.New(geom, index, &csvRecord{header: header, row: row}))
		index++
	}

	return ds, nil
}

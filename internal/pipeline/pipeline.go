// Package pipeline implements the parallel streaming query pipeline: a
// sequential reader, a fixed pool of search workers sharing a bounded
// channel, and a sequential writer.
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/quadtree"
	"github.com/kass/geo-munge/internal/sphere"
)

// ErrMissingLatLngHeader mirrors format.ErrMissingLatLngHeader for the
// comparison stream's own header row.
var ErrMissingLatLngHeader = errors.New("pipeline: csv header missing lng/lat columns")

// ErrAborted names the aborted status of a run cut short by a fatal writer
// I/O failure. No function in this package returns or sends it: on
// cancellation the workers return without a status, and Run returns the
// writer's own error.
var ErrAborted = errors.New("pipeline: aborted")

// channelDepth is the bounded MPSC channel's capacity, expressed as a
// multiple of the worker count so a handful of slow workers can't starve the
// reader (see SPEC_FULL.md).
const channelDepth = 4

// Searcher is the read-only query surface a built quadtree.Tree exposes to
// the pipeline. Defined here, rather than imported from quadtree directly,
// so tests can drive the pipeline against a stub index.
type Searcher interface {
	FindR(q sphere.Point, rMax float64) (quadtree.Result, error)
	KNNR(q sphere.Point, k int, rMax float64) ([]quadtree.Result, error)
}

// Config parameterizes one pipeline run.
type Config struct {
	K             int
	RadiusMeters  float64 // 0 means unbounded
	Fields        []string
	Delimiter     byte
	NumWorkers    int
	SingleThread  bool
	OnIngestError func(csvIndex int, err error)
}

func (c Config) angularRadius() float64 {
	if c.RadiusMeters <= 0 {
		return math.Inf(1)
	}
	return c.RadiusMeters / sphere.MeanEarthRadiusMeters
}

// delimiter resolves the CSV field delimiter, defaulting to comma the same
// way config.ParseDelimiter does for the CLI flag. encoding/csv treats a
// zero-value Comma as invalid on every Read/Write, so a Config built without
// an explicit Delimiter must still resolve to something valid.
func (c Config) delimiter() rune {
	if c.Delimiter == 0 {
		return ','
	}
	return rune(c.Delimiter)
}

// Run reads comparison records from r, searches tree for each, and writes
// result rows to w. It dispatches to the single- or multi-threaded variant
// per cfg.SingleThread. The returned error is always a pipeline-fatal one
// (I/O or configuration); per-record ingest and query errors are reported
// through cfg.OnIngestError and never fail the run.
func Run(ctx context.Context, tree Searcher, r io.Reader, w io.Writer, cfg Config) error {
	reader := csv.NewReader(r)
	reader.Comma = cfg.delimiter()

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("pipeline: reading header: %w", err)
	}
	lngIdx, latIdx, idIdx, err := resolveHeader(header)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	writer.Comma = cfg.delimiter()
	if err := writer.Write(outputHeader(cfg.Fields)); err != nil {
		return fmt.Errorf("pipeline: writing header: %w", err)
	}

	if cfg.SingleThread {
		return runSingleThreaded(ctx, tree, reader, writer, cfg, lngIdx, latIdx, idIdx)
	}
	return runParallel(ctx, tree, reader, writer, cfg, lngIdx, latIdx, idIdx)
}

func numWorkers(cfg Config) int {
	if cfg.NumWorkers > 0 {
		return cfg.NumWorkers
	}
	return 1
}

func resolveHeader(header []string) (lngIdx, latIdx, idIdx int, err error) {
	lngIdx, latIdx, idIdx = -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lng":
			lngIdx = i
		case "lat":
			latIdx = i
		case "id":
			idIdx = i
		}
	}
	if lngIdx < 0 || latIdx < 0 {
		return 0, 0, 0, ErrMissingLatLngHeader
	}
	return lngIdx, latIdx, idIdx, nil
}

func outputHeader(fields []string) []string {
	return append([]string{"input_index", "id", "lng", "lat", "distance", "find_index"}, fields...)
}

func parseRecord(row []string, lngIdx, latIdx, idIdx, index int) (Record, error) {
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(row[lngIdx]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
	if errLng != nil || errLat != nil {
		return Record{}, fmt.Errorf("cannot parse lng/lat as a number")
	}
	id := ""
	if idIdx >= 0 && idIdx < len(row) {
		id = row[idIdx]
	}
	return Record{CSVIndex: index, ID: id, LngDeg: lng, LatDeg: lat}, nil
}

// search dispatches to FindR for the single-nearest case (k == 1, the
// default) and KNNR otherwise, per spec §4.5 ("performs parse_point, then
// find_r or knn_r"). Routing k == 1 through FindR, rather than folding it
// into KNNR(k=1), is what makes FindR's ErrNoneInRadius reachable from the
// CLI instead of being exercised only by internal/quadtree's own tests.
func search(tree Searcher, cfg Config, rec Record) Output {
	q := sphere.ToRadians(rec.LngDeg, rec.LatDeg)
	out := Output{CSVIndex: rec.CSVIndex, ID: rec.ID, LngDeg: rec.LngDeg, LatDeg: rec.LatDeg}

	if cfg.K == 1 {
		res, err := tree.FindR(q, cfg.angularRadius())
		if err != nil {
			out.Err = err
			return out
		}
		out.Matches = []Match{matchFromResult(res, cfg)}
		return out
	}

	results, err := tree.KNNR(q, cfg.K, cfg.angularRadius())
	if err != nil {
		out.Err = err
		return out
	}
	matches := make([]Match, len(results))
	for i, res := range results {
		matches[i] = matchFromResult(res, cfg)
	}
	out.Matches = matches
	return out
}

func matchFromResult(res quadtree.Result, cfg Config) Match {
	meters := res.Distance * sphere.MeanEarthRadiusMeters
	var fields []string
	if p, ok := res.Item.(*datum.Datum); ok {
		fields = p.Project(cfg.Fields)
	} else {
		fields = make([]string, len(cfg.Fields))
	}
	return Match{DistanceMeters: meters, FindIndex: res.Item.SourceIndex(), Fields: fields}
}

// truncateMillis formats meters with exactly three fractional digits,
// truncated (not rounded) at the millimeter.
func truncateMillis(meters float64) string {
	truncated := math.Trunc(meters*1000) / 1000
	return strconv.FormatFloat(truncated, 'f', 3, 64)
}

func writeOutput(w *csv.Writer, out Output, numFields int) error {
	if out.Err != nil {
		return nil // surfaced via OnIngestError, not written as a row
	}
	lng := strconv.FormatFloat(out.LngDeg, 'f', -1, 64)
	lat := strconv.FormatFloat(out.LatDeg, 'f', -1, 64)
	for _, m := range out.Matches {
		row := make([]string, 0, 6+numFields)
		row = append(row,
			strconv.Itoa(out.CSVIndex),
			out.ID,
			lng,
			lat,
			truncateMillis(m.DistanceMeters),
			strconv.Itoa(m.FindIndex),
		)
		row = append(row, m.Fields...)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

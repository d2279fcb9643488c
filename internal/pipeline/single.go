package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// runSingleThreaded inlines reader, search, and writer into one loop: a
// deterministic debugging mode where output order is strictly input order.
func runSingleThreaded(ctx context.Context, tree Searcher, reader *csv.Reader, writer *csv.Writer, cfg Config, lngIdx, latIdx, idIdx int) error {
	defer writer.Flush()

	index := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if cfg.OnIngestError != nil {
				cfg.OnIngestError(index, readErr)
			}
			index++
			continue
		}

		rec, parseErr := parseRecord(row, lngIdx, latIdx, idIdx, index)
		if parseErr != nil {
			if cfg.OnIngestError != nil {
				cfg.OnIngestError(index, parseErr)
			}
			index++
			continue
		}

		out := search(tree, cfg, rec)
		if out.Err != nil {
			if cfg.OnIngestError != nil {
				cfg.OnIngestError(out.CSVIndex, out.Err)
			}
			index++
			continue
		}
		if err := writeOutput(writer, out, len(cfg.Fields)); err != nil {
			return fmt.Errorf("pipeline: writer I/O failure: %w", err)
		}
		index++
	}

	writer.Flush()
	return writer.Error()
}

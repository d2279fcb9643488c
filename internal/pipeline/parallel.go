package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"
)

// runParallel wires the reader → worker pool → writer topology: a
// reader goroutine feeds a bounded channel of records, a fixed pool of
// search workers drain it and search the tree, and the writer (this
// goroutine) drains their results in receive order, which is not input
// order. Cancellation is cooperative: a writer I/O failure cancels ctx, and
// every stage notices on its next channel operation.
func runParallel(parent context.Context, tree Searcher, reader *csv.Reader, writer *csv.Writer, cfg Config, lngIdx, latIdx, idIdx int) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	n := numWorkers(cfg)
	records := make(chan Record, channelDepth*n)
	outputs := make(chan Output, channelDepth*n)

	go runReader(ctx, reader, records, lngIdx, latIdx, idIdx, cfg.OnIngestError)

	var workers sync.WaitGroup
	workers.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer workers.Done()
			runWorker(ctx, tree, cfg, records, outputs)
		}()
	}
	go func() {
		workers.Wait()
		close(outputs)
	}()

	var writeErr error
	for out := range outputs {
		if writeErr != nil {
			continue // draining: let reader/workers unwind after cancellation
		}
		if out.Err != nil {
			if cfg.OnIngestError != nil {
				cfg.OnIngestError(out.CSVIndex, out.Err)
			}
			continue
		}
		if err := writeOutput(writer, out, len(cfg.Fields)); err != nil {
			writeErr = fmt.Errorf("pipeline: writer I/O failure: %w", err)
			cancel()
		}
	}

	writer.Flush()
	if writeErr != nil {
		return writeErr
	}
	return writer.Error()
}

func runReader(ctx context.Context, reader *csv.Reader, records chan<- Record, lngIdx, latIdx, idIdx int, onError func(int, error)) {
	defer close(records)

	index := 0
	for {
		row, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return
			}
			if onError != nil {
				onError(index, readErr)
			}
			index++
			continue
		}

		rec, parseErr := parseRecord(row, lngIdx, latIdx, idIdx, index)
		if parseErr != nil {
			if onError != nil {
				onError(index, parseErr)
			}
			index++
			continue
		}
		index++

		select {
		case records <- rec:
		case <-ctx.Done():
			return
		}
	}
}

func runWorker(ctx context.Context, tree Searcher, cfg Config, records <-chan Record, outputs chan<- Output) {
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return
			}
			out := search(tree, cfg, rec)
			select {
			case outputs <- out:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/geo-munge/internal/config"
	"github.com/kass/geo-munge/internal/format"
	"github.com/kass/geo-munge/internal/pipeline"
	"github.com/kass/geo-munge/internal/quadtree"
	"github.com/kass/geo-munge/internal/sphere"
)

var (
	flagK            int
	flagRadius       float64
	flagMaxDepth     int
	flagMaxChildren  int
	flagPointDiscp   bool
	flagSphereBBox   bool
	flagExplicitBBox string
	flagFields       string
	flagDelimiter    string
	flagSingleThread bool
	flagVerbose      bool
	flagSummary      bool
)

var runCmd = &cobra.Command{
	Use:   "run <reference-file>",
	Short: "Build a quadtree from a reference file and stream matches for stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().IntVarP(&flagK, "k", "k", 1, "number of nearest neighbors per query")
	runCmd.Flags().Float64VarP(&flagRadius, "radius", "r", 0, "maximum match distance in meters (unbounded if omitted)")
	runCmd.Flags().IntVarP(&flagMaxDepth, "depth", "d", config.DefaultMaxDepth, "quadtree max depth")
	runCmd.Flags().IntVarP(&flagMaxChildren, "children", "c", config.DefaultMaxChildren, "quadtree max children per node before subdivision")
	runCmd.Flags().BoolVarP(&flagPointDiscp, "point", "p", false, "use Point discipline (default is Bounds)")
	runCmd.Flags().BoolVarP(&flagSphereBBox, "sphere", "s", false, "root the index at the full globe")
	runCmd.Flags().StringVarP(&flagExplicitBBox, "bbox", "x", "", "explicit bbox lng_min,lat_min,lng_max,lat_max (degrees)")
	runCmd.Flags().StringVar(&flagFields, "fields", "", "comma-separated metadata fields to project into the output")
	runCmd.Flags().StringVarP(&flagDelimiter, "delimiter", "l", ",", "single-byte field delimiter shared by input and output")
	runCmd.Flags().BoolVar(&flagSingleThread, "single-thread", false, "run the pipeline inline on one goroutine")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log per-record ingest and query errors to stderr")
	runCmd.Flags().BoolVarP(&flagSummary, "summary", "t", false, "print the built index's summary to stderr")

	rootCmd.AddCommand(runCmd)
}

// buildSettings validates and resolves the run command's flags into a
// config.Settings, consulting dataset's embedded bounds per the bbox
// precedence rule.
func buildSettings(referenceFile string, dataset *format.Dataset) (config.Settings, error) {
	delimiter, err := config.ParseDelimiter(flagDelimiter)
	if err != nil {
		return config.Settings{}, err
	}

	var explicitBBox *sphere.Rect
	if flagExplicitBBox != "" {
		r, err := config.ParseBBox(flagExplicitBBox)
		if err != nil {
			return config.Settings{}, err
		}
		explicitBBox = &r
	}

	discipline := quadtree.DisciplineBounds
	if flagPointDiscp {
		discipline = quadtree.DisciplinePoint
	}

	var fields []string
	if flagFields != "" {
		fields = strings.Split(flagFields, ",")
	}

	return config.Settings{
		ReferenceFile: referenceFile,
		K:             flagK,
		RadiusMeters:  flagRadius,
		MaxDepth:      flagMaxDepth,
		MaxChildren:   flagMaxChildren,
		Discipline:    discipline,
		Fields:        fields,
		Delimiter:     delimiter,
		SingleThread:  flagSingleThread,
		Verbose:       flagVerbose,
		PrintSummary:  flagSummary,
		Bounds:        config.ResolveBounds(explicitBBox, flagSphereBBox, dataset.Bounds),
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	referenceFile := args[0]

	dataset, err := format.Open(referenceFile)
	if err != nil {
		return fmt.Errorf("geomunge: opening reference file: %w", err)
	}

	settings, err := buildSettings(referenceFile, dataset)
	if err != nil {
		return err
	}

	for _, ingestErr := range dataset.Errors {
		if settings.Verbose {
			fmt.Fprintln(os.Stderr, ingestErr)
		}
	}

	tree, err := quadtree.New(settings.Bounds, settings.Discipline, settings.MaxDepth, settings.MaxChildren)
	if err != nil {
		return fmt.Errorf("geomunge: building index: %w", err)
	}

	start := time.Now()
	skipped := 0
	for _, d := range dataset.Datums {
		if err := tree.Insert(d); err != nil {
			skipped++
			if settings.Verbose {
				fmt.Fprintf(os.Stderr, "record %d: %v\n", d.SourceIndex(), err)
			}
		}
	}
	buildTime := time.Since(start)

	if settings.PrintSummary {
		fmt.Fprintf(os.Stderr, "indexed %d datums (%d skipped) in %v, discipline=%v, depth=%d, children=%d\n",
			tree.Size(), skipped, buildTime, settings.Discipline, settings.MaxDepth, settings.MaxChildren)
	}

	cfg := pipeline.Config{
		K:            settings.K,
		RadiusMeters: settings.RadiusMeters,
		Fields:       settings.Fields,
		Delimiter:    settings.Delimiter,
		NumWorkers:   runtime.NumCPU(),
		SingleThread: settings.SingleThread,
		OnIngestError: func(csvIndex int, err error) {
			if settings.Verbose {
				fmt.Fprintf(os.Stderr, "input record %d: %v\n", csvIndex, err)
			}
		},
	}

	if err := pipeline.Run(context.Background(), tree, os.Stdin, os.Stdout, cfg); err != nil {
		return fmt.Errorf("geomunge: %w", err)
	}
	return nil
}

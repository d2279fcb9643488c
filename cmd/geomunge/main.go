// Command geomunge builds a quadtree index over a reference geospatial file
// and streams nearest-neighbor matches for a comparison-point CSV.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geomunge",
	Short: "Great-circle nearest-neighbor queries over a quadtree index",
	Long:  `geomunge indexes a reference geospatial dataset into an in-memory quadtree and streams nearest-neighbor matches for a CSV of comparison points.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

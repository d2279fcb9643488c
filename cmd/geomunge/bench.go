package main

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/spf13/cobra"

	"github.com/kass/geo-munge/internal/datum"
	"github.com/kass/geo-munge/internal/quadtree"
	"github.com/kass/geo-munge/internal/sphere"
)

var (
	benchPoints      int
	benchQueries     int
	benchK           int
	benchRadiusKm    float64
	benchWorkers     int
	benchClusters    int
	benchClusterKm   float64
	benchMaxDepth    int
	benchMaxChildren int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark KNNR throughput over a synthetic, clustered point set",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchPoints, "points", "n", 1_000_000, "number of synthetic points to index")
	benchCmd.Flags().IntVarP(&benchQueries, "queries", "q", 1000, "number of knn queries to run")
	benchCmd.Flags().IntVarP(&benchK, "k", "k", 10, "neighbors requested per query")
	benchCmd.Flags().Float64VarP(&benchRadiusKm, "radius", "r", 0, "maximum match distance in km (unbounded if 0)")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "concurrent query workers")
	benchCmd.Flags().IntVar(&benchClusters, "clusters", 5, "number of s2 caps to cluster synthetic points around")
	benchCmd.Flags().Float64Var(&benchClusterKm, "cluster-radius", 300, "radius in km of each cluster cap")
	benchCmd.Flags().IntVarP(&benchMaxDepth, "depth", "d", 12, "quadtree max depth")
	benchCmd.Flags().IntVarP(&benchMaxChildren, "children", "c", 16, "quadtree max children per node")

	rootCmd.AddCommand(benchCmd)
}

// syntheticPoint is the minimal quadtree.Item a benchmark point needs: no
// metadata, no non-point geometry.
func syntheticPoint(idx int, ll s2.LatLng) *datum.Datum {
	p := sphere.ToRadians(ll.Lng.Degrees(), ll.Lat.Degrees())
	return datum.New(sphere.NewPointGeometry(p), idx, nil)
}

// clusterCap is an s2.Cap plus the degree-space bounding box its rejection
// sampler draws candidates from.
type clusterCap struct {
	cap            s2.Cap
	minLat, maxLat float64
	minLng, maxLng float64
}

// clusterCaps picks n random cap centers on the sphere, each cap with the
// angular radius that radiusKm spans on the mean Earth radius, used to generate a realistic clustered (rather than
// uniform) point distribution for benchmarking.
func clusterCaps(n int, radiusKm float64, rnd *rand.Rand) []clusterCap {
	angle := s1.Angle(radiusKm * 1000 / sphere.MeanEarthRadiusMeters)
	deltaDeg := angle.Degrees()

	caps := make([]clusterCap, n)
	for i := range caps {
		centerLat := rnd.Float64()*180 - 90
		centerLng := rnd.Float64()*360 - 180
		center := s2.PointFromLatLng(s2.LatLngFromDegrees(centerLat, centerLng))

		lngScale := 1.0
		if cosLat := math.Cos(centerLat * math.Pi / 180); cosLat > 0.05 {
			lngScale = 1 / cosLat
		} else {
			lngScale = 20 // near the poles, widen generously rather than divide by ~0
		}

		caps[i] = clusterCap{
			cap:    s2.CapFromCenterAngle(center, angle),
			minLat: clampLat(centerLat - deltaDeg),
			maxLat: clampLat(centerLat + deltaDeg),
			minLng: centerLng - deltaDeg*lngScale,
			maxLng: centerLng + deltaDeg*lngScale,
		}
	}
	return caps
}

func clampLat(lat float64) float64 {
	if lat < -90 {
		return -90
	}
	if lat > 90 {
		return 90
	}
	return lat
}

func wrapLng(lng float64) float64 {
	for lng < -180 {
		lng += 360
	}
	for lng > 180 {
		lng -= 360
	}
	return lng
}

// randomPointInCluster rejection-samples a point inside c's cap from its
// degree-space bounding box; caps are small relative to the globe so this
// converges in a handful of draws.
func randomPointInCluster(c clusterCap, rnd *rand.Rand) s2.LatLng {
	for {
		lat := c.minLat + rnd.Float64()*(c.maxLat-c.minLat)
		lng := wrapLng(c.minLng + rnd.Float64()*(c.maxLng-c.minLng))
		ll := s2.LatLngFromDegrees(lat, lng)
		if c.cap.ContainsPoint(s2.PointFromLatLng(ll)) {
			return ll
		}
	}
}

func generateClusteredPoints(n int, caps []clusterCap, seed int64) []s2.LatLng {
	points := make([]s2.LatLng, n)
	workers := runtime.NumCPU()
	perWorker := n / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workers-1 {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed + int64(start)))
			for i := start; i < end; i++ {
				points[i] = randomPointInCluster(caps[rnd.Intn(len(caps))], rnd)
			}
		}(start, end)
	}
	wg.Wait()
	return points
}

func runBench(cmd *cobra.Command, args []string) error {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	caps := clusterCaps(benchClusters, benchClusterKm, rnd)

	fmt.Printf("Generating %d clustered points around %d s2 caps...\n", benchPoints, benchClusters)
	points := generateClusteredPoints(benchPoints, caps, rnd.Int63())

	tree, err := quadtree.New(sphere.GlobalBounds(), quadtree.DisciplinePoint, benchMaxDepth, benchMaxChildren)
	if err != nil {
		return err
	}

	fmt.Println("Building quadtree index...")
	start := time.Now()
	for i, ll := range points {
		_ = tree.Insert(syntheticPoint(i, ll))
	}
	buildTime := time.Since(start)
	fmt.Printf("Indexed %d points in %v (%.0f points/sec)\n", tree.Size(), buildTime, float64(tree.Size())/buildTime.Seconds())

	radius := angularRadiusFromKm(benchRadiusKm)

	var totalResults atomic.Int64
	var completed atomic.Int64
	queryStart := time.Now()

	var wg sync.WaitGroup
	perWorker := benchQueries / benchWorkers
	for w := 0; w < benchWorkers; w++ {
		s := w * perWorker
		e := s + perWorker
		if w == benchWorkers-1 {
			e = benchQueries
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(s)))
			for i := s; i < e; i++ {
				c := caps[rnd.Intn(len(caps))]
				ll := randomPointInCluster(c, rnd)
				q := sphere.ToRadians(ll.Lng.Degrees(), ll.Lat.Degrees())
				results, err := tree.KNNR(q, benchK, radius)
				if err != nil {
					continue
				}
				totalResults.Add(int64(len(results)))
				completed.Add(1)
			}
		}(s, e)
	}
	wg.Wait()
	elapsed := time.Since(queryStart)

	n := completed.Load()
	fmt.Println("\n=== KNNR Benchmark Results ===")
	fmt.Printf("Queries completed: %d\n", n)
	fmt.Printf("Total time: %v\n", elapsed)
	if n > 0 {
		fmt.Printf("Queries per second: %.0f\n", float64(n)/elapsed.Seconds())
		fmt.Printf("Average query time: %v\n", elapsed/time.Duration(n))
		fmt.Printf("Average results per query: %.2f\n", float64(totalResults.Load())/float64(n))
	}
	return nil
}

// angularRadiusFromKm converts a km radius to the unitless angular distance
// the query engine expects; 0 or negative (unbounded) maps to +Inf.
func angularRadiusFromKm(km float64) float64 {
	if km <= 0 {
		return math.Inf(1)
	}
	return km * 1000 / sphere.MeanEarthRadiusMeters
}

// Command score-grid runs the scoring pipeline against a layer bundle
// file and writes the ranked sites as GeoJSON. No server, no database:
// the tool exists so a bundle can be scored and inspected offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/monitor"
	"github.com/geopulse-data/geopulse/internal/results"
	"github.com/geopulse-data/geopulse/internal/sources"
)

func main() {
	bundlePath := flag.String("bundle", "", "layer bundle JSON file (required)")
	configPath := flag.String("config", "", "scoring config JSON file (defaults apply when omitted)")
	output := flag.String("o", "scored_sites.geojson", "output GeoJSON path")
	heatmap := flag.String("heatmap", "", "also write a GPS heatmap PNG to this path")
	flag.Parse()

	if *bundlePath == "" {
		log.Fatal("-bundle is required")
	}

	cfg := config.EmptyScoringConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadScoringConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	rc, err := geopulse.ResolveRunConfig(cfg)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Nil database: the run executes without persistence.
	manager := geopulse.NewRunManager(nil, sources.NewBundleSource(*bundlePath), "bundle", nil, nil)

	rr, err := manager.Execute(context.Background(), rc)
	if err != nil {
		log.Fatalf("scoring run failed: %v", err)
	}

	if err := results.WriteFile(rr, *output); err != nil {
		log.Fatalf("failed to write GeoJSON: %v", err)
	}

	if *heatmap != "" {
		if err := monitor.WriteHeatmapPNG(rr, *heatmap); err != nil {
			log.Fatalf("failed to write heatmap: %v", err)
		}
		log.Printf("✓ Heatmap: %s", *heatmap)
	}

	printResult(rr)
	log.Printf("✓ GeoJSON: %s", *output)
}

func printResult(rr *geopulse.RunResult) {
	fmt.Println("\n=== Scoring Run Results ===")
	fmt.Printf("Run ID: %s\n", rr.RunID)
	fmt.Printf("Region: %s\n", rr.Region)
	fmt.Printf("Valid Cells: %d\n", rr.ValidCells)
	fmt.Printf("Max GPS: %.4f\n", rr.MaxGPS)
	fmt.Printf("Processing Time: %.2fs\n", rr.Duration().Seconds())

	fmt.Println("\n--- Ranked Sites ---")
	if len(rr.Sites) == 0 {
		fmt.Println("(none above threshold)")
		return
	}
	fmt.Printf("%-5s %-12s %8s %8s %8s %6s %10s %10s\n",
		"Rank", "Name", "GPS", "Peak", "Mean", "Cells", "Lat", "Lon")
	for _, s := range rr.Sites {
		fmt.Printf("%-5d %-12s %8.4f %8.4f %8.4f %6d %10.4f %10.4f\n",
			s.Rank, s.Name, s.Score, s.PeakScore, s.MeanScore,
			s.CellCount, s.Centroid.Lat(), s.Centroid.Lon())
	}
}

// Command gen-layers writes a synthetic layer bundle for testing the
// bundle loading path and the offline scoring tools.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/sources"
)

func main() {
	output := flag.String("o", "layers.json", "output bundle path")
	regionName := flag.String("region", "southern_utah", "region name for the bundle extent")
	rows := flag.Int("rows", 48, "grid rows")
	cols := flag.Int("cols", 64, "grid columns")
	seed := flag.Int64("seed", 42, "generator seed")
	flag.Parse()

	region, err := config.LookupRegion(*regionName)
	if err != nil {
		log.Fatalf("unknown region: %v", err)
	}

	source := sources.NewSyntheticSource(*rows, *cols, *seed)
	ls, _, err := source.Load(context.Background(), region)
	if err != nil {
		log.Fatalf("failed to generate layers: %v", err)
	}

	bundle, err := sources.BundleFromLayers(region.Name, ls)
	if err != nil {
		log.Fatalf("failed to build bundle: %v", err)
	}
	data, err := bundle.Marshal()
	if err != nil {
		log.Fatalf("failed to marshal bundle: %v", err)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("failed to write bundle: %v", err)
	}
	log.Printf("✓ Created: %s (%s, %dx%d, %d layers)", *output, region.Name, *rows, *cols, len(ls))
}

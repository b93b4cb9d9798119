// Package results turns completed scoring runs into their GeoJSON
// artifacts. Property and member names are a stable contract with the
// rendering side: identical inputs and configuration must serialize
// byte-identically across runs.
package results

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/geopulse-data/geopulse/internal/geopulse"
)

// Encode transforms a run result into a GeoJSON feature collection.
// Features appear in rank order. Hull-policy sites carry Polygon
// geometry and an area_km2 property; centroid-policy sites carry Point
// geometry and a radius_km property.
func Encode(rr *geopulse.RunResult) (*geojson.FeatureCollection, error) {
	if rr == nil {
		return nil, fmt.Errorf("no run result to encode")
	}

	fc := geojson.NewFeatureCollection()
	for _, s := range rr.Sites {
		f := geojson.NewFeature(s.Geometry())
		f.ID = s.ID
		f.Properties["site_id"] = s.ID
		f.Properties["name"] = s.Name
		f.Properties["rank"] = s.Rank
		f.Properties["gps"] = s.Score
		f.Properties["peak_gps"] = s.PeakScore
		f.Properties["mean_gps"] = s.MeanScore
		f.Properties["cell_count"] = s.CellCount
		f.Properties["centroid_lon"] = s.Centroid.Lon()
		f.Properties["centroid_lat"] = s.Centroid.Lat()
		if len(s.Hull) > 0 {
			f.Properties["area_km2"] = s.AreaKm2
		} else {
			f.Properties["radius_km"] = s.RadiusKm
		}
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{
		"run_id":       rr.RunID,
		"region":       rr.Region,
		"generated_at": rr.FinishedAt.UTC().Format(time.RFC3339),
		"config":       rr.Config,
		"provenance":   rr.Provenance,
	}
	return fc, nil
}

// Marshal encodes the run result as indented GeoJSON, the on-disk
// artifact format.
func Marshal(rr *geopulse.RunResult) ([]byte, error) {
	fc, err := Encode(rr)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return data, nil
}

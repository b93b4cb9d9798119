package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/geopulse-data/geopulse/internal/raster"
)

// DefaultRegionName is the study region used when none is configured.
const DefaultRegionName = "southern_utah"

// CustomRegionName selects the extent supplied through the
// GEOPULSE_CUSTOM_* environment variables.
const CustomRegionName = "custom"

// Environment variables consulted for region selection. GEOPULSE_REGION
// overrides the configured region name; the CUSTOM bounds are only read
// when the selected region is "custom".
const (
	EnvRegion       = "GEOPULSE_REGION"
	EnvCustomLonMin = "GEOPULSE_CUSTOM_LON_MIN"
	EnvCustomLatMin = "GEOPULSE_CUSTOM_LAT_MIN"
	EnvCustomLonMax = "GEOPULSE_CUSTOM_LON_MAX"
	EnvCustomLatMax = "GEOPULSE_CUSTOM_LAT_MAX"
)

// Region is a named study area.
type Region struct {
	Name   string        `json:"name"`
	Extent raster.Extent `json:"extent"`
}

// builtinRegions holds the fixed study areas the scoring model was
// developed against. Order is the presentation order for the API.
var builtinRegions = []Region{
	{Name: "southern_utah", Extent: raster.Extent{MinLon: -114.0, MinLat: 37.0, MaxLon: -111.5, MaxLat: 39.0}},
	{Name: "central_utah", Extent: raster.Extent{MinLon: -114.0, MinLat: 38.5, MaxLon: -111.0, MaxLat: 40.5}},
	{Name: "northern_utah", Extent: raster.Extent{MinLon: -113.0, MinLat: 39.5, MaxLon: -111.0, MaxLat: 42.0}},
	{Name: "all_utah", Extent: raster.Extent{MinLon: -114.1, MinLat: 36.9, MaxLon: -109.0, MaxLat: 42.1}},
	{Name: "great_basin", Extent: raster.Extent{MinLon: -117.0, MinLat: 36.0, MaxLon: -113.0, MaxLat: 40.0}},
}

// BuiltinRegions returns the fixed study areas in presentation order.
// The custom region is excluded because its extent depends on the
// environment at lookup time.
func BuiltinRegions() []Region {
	out := make([]Region, len(builtinRegions))
	copy(out, builtinRegions)
	return out
}

// RegionNames returns every selectable region name, custom included.
func RegionNames() []string {
	names := make([]string, 0, len(builtinRegions)+1)
	for _, r := range builtinRegions {
		names = append(names, r.Name)
	}
	return append(names, CustomRegionName)
}

// LookupRegion resolves a region name to its extent. The empty name
// falls back to GEOPULSE_REGION and then to the default study region.
// Unknown names are rejected rather than silently mapped to a default,
// so a typo cannot score the wrong patch of ground.
func LookupRegion(name string) (Region, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		name = strings.TrimSpace(strings.ToLower(os.Getenv(EnvRegion)))
	}
	if name == "" {
		name = DefaultRegionName
	}

	if name == CustomRegionName {
		return customRegion()
	}
	for _, r := range builtinRegions {
		if r.Name == name {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("unknown region %q (valid: %s)", name, strings.Join(RegionNames(), ", "))
}

// customRegion assembles the custom study area from the environment.
// Unset variables fall back to a box covering the full Utah study area.
func customRegion() (Region, error) {
	extent := raster.Extent{
		MinLon: envFloat(EnvCustomLonMin, -114.0),
		MinLat: envFloat(EnvCustomLatMin, 37.0),
		MaxLon: envFloat(EnvCustomLonMax, -109.0),
		MaxLat: envFloat(EnvCustomLatMax, 42.0),
	}
	if err := extent.Validate(); err != nil {
		return Region{}, fmt.Errorf("custom region: %w", err)
	}
	return Region{Name: CustomRegionName, Extent: extent}, nil
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

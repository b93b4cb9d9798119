package results

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/sites"
	"github.com/geopulse-data/geopulse/internal/sources"
)

func testRunConfig() geopulse.RunConfig {
	return geopulse.RunConfig{
		Region: config.Region{
			Name:   "test_basin",
			Extent: raster.Extent{MinLon: -114.0, MinLat: 37.0, MaxLon: -113.0, MaxLat: 38.0},
		},
		GridRows:  4,
		GridCols:  4,
		Normalize: scoring.NormalizeParams{Mode: scoring.ModeMinMax},
		Weights:   scoring.WeightSpec{raster.RoleTemperature: 1.0},
		Extract: sites.Params{
			Threshold:      0.75,
			MinClusterSize: 3,
			TopK:           10,
			ScorePolicy:    sites.ScoreMax,
			GeometryPolicy: sites.GeometryHull,
		},
		OutputDir: "out",
	}
}

// hullRunResult is a completed run under the hull geometry policy with
// two ranked sites.
func hullRunResult() *geopulse.RunResult {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &geopulse.RunResult{
		RunID:      "run-123",
		Region:     "test_basin",
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Second),
		Sites: []sites.CandidateSite{
			{
				ID:        "site-aaa",
				Name:      "Site R-1",
				Rank:      1,
				Score:     0.95,
				PeakScore: 0.95,
				MeanScore: 0.91,
				CellCount: 4,
				Centroid:  orb.Point{-113.85, 37.15},
				Hull: orb.Polygon{{
					{-113.9, 37.1}, {-113.8, 37.1}, {-113.8, 37.2}, {-113.9, 37.2}, {-113.9, 37.1},
				}},
				AreaKm2: 98.5,
			},
			{
				ID:        "site-bbb",
				Name:      "Site R-2",
				Rank:      2,
				Score:     0.82,
				PeakScore: 0.82,
				MeanScore: 0.80,
				CellCount: 3,
				Centroid:  orb.Point{-113.5, 37.5},
				Hull: orb.Polygon{{
					{-113.55, 37.45}, {-113.45, 37.45}, {-113.45, 37.55}, {-113.55, 37.55}, {-113.55, 37.45},
				}},
				AreaKm2: 74.1,
			},
		},
		Config: testRunConfig(),
		Provenance: []sources.LayerProvenance{
			{Role: "temperature", Source: "synthetic:seed=42", Cells: 16, ValidCells: 16},
		},
		ValidCells: 16,
		MaxGPS:     0.95,
	}
}

// centroidRunResult is a completed run under the centroid geometry
// policy with a single site.
func centroidRunResult() *geopulse.RunResult {
	rr := hullRunResult()
	rr.Config.Extract.GeometryPolicy = sites.GeometryCentroid
	rr.Sites = []sites.CandidateSite{
		{
			ID:        "site-ccc",
			Name:      "Site R-1",
			Rank:      1,
			Score:     0.88,
			PeakScore: 0.88,
			MeanScore: 0.85,
			CellCount: 5,
			Centroid:  orb.Point{-113.6, 37.4},
			RadiusKm:  2.4,
		},
	}
	return rr
}

func TestEncode_HullFeatures(t *testing.T) {
	t.Parallel()
	fc, err := Encode(hullRunResult())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "site-aaa", first.ID)
	_, isPolygon := first.Geometry.(orb.Polygon)
	assert.True(t, isPolygon, "hull sites serialize as polygons")

	assert.Equal(t, "site-aaa", first.Properties["site_id"])
	assert.Equal(t, "Site R-1", first.Properties["name"])
	assert.Equal(t, 1, first.Properties["rank"])
	assert.Equal(t, 0.95, first.Properties["gps"])
	assert.Equal(t, 0.95, first.Properties["peak_gps"])
	assert.Equal(t, 0.91, first.Properties["mean_gps"])
	assert.Equal(t, 4, first.Properties["cell_count"])
	assert.InDelta(t, -113.85, first.Properties["centroid_lon"], 1e-12)
	assert.InDelta(t, 37.15, first.Properties["centroid_lat"], 1e-12)
	assert.Contains(t, first.Properties, "area_km2")
	assert.NotContains(t, first.Properties, "radius_km")

	// Features follow rank order.
	assert.Equal(t, 2, fc.Features[1].Properties["rank"])

	assert.Equal(t, "run-123", fc.ExtraMembers["run_id"])
	assert.Equal(t, "test_basin", fc.ExtraMembers["region"])
	assert.Equal(t, "2025-06-01T12:00:05Z", fc.ExtraMembers["generated_at"])
	assert.Contains(t, fc.ExtraMembers, "config")
	assert.Contains(t, fc.ExtraMembers, "provenance")
}

func TestEncode_CentroidFeature(t *testing.T) {
	t.Parallel()
	fc, err := Encode(centroidRunResult())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	point, isPoint := f.Geometry.(orb.Point)
	require.True(t, isPoint, "centroid sites serialize as points")
	assert.InDelta(t, -113.6, point.Lon(), 1e-12)
	assert.InDelta(t, 37.4, point.Lat(), 1e-12)

	assert.Equal(t, 2.4, f.Properties["radius_km"])
	assert.NotContains(t, f.Properties, "area_km2")
}

func TestEncode_NilResult(t *testing.T) {
	t.Parallel()
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestEncode_NoSites(t *testing.T) {
	t.Parallel()
	rr := hullRunResult()
	rr.Sites = nil

	fc, err := Encode(rr)
	require.NoError(t, err, "a run with no qualifying sites still produces an artifact")
	assert.Empty(t, fc.Features)
	assert.Equal(t, "run-123", fc.ExtraMembers["run_id"])
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()
	data, err := Marshal(hullRunResult())
	require.NoError(t, err)

	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, decoded.Features, 2)

	first := decoded.Features[0]
	assert.Equal(t, "Site R-1", first.Properties["name"])
	// JSON numbers decode as float64.
	assert.Equal(t, float64(1), first.Properties["rank"])
	assert.Equal(t, float64(4), first.Properties["cell_count"])

	poly, isPolygon := first.Geometry.(orb.Polygon)
	require.True(t, isPolygon)
	require.Len(t, poly, 1)
	assert.Len(t, poly[0], 5)

	assert.Equal(t, "run-123", decoded.ExtraMembers["run_id"])
	assert.Equal(t, "test_basin", decoded.ExtraMembers["region"])
}

func TestMarshal_Deterministic(t *testing.T) {
	t.Parallel()
	first, err := Marshal(hullRunResult())
	require.NoError(t, err)
	second, err := Marshal(hullRunResult())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second),
		"identical results must serialize byte-identically")
}

// Package monitor serves the debug visualisations for the most recent
// scoring run: the composite GPS grid, the ranked site map, and a PNG
// heatmap. Data preparation is separated from rendering so the JSON
// endpoints and the HTML charts share one code path.
package monitor

import (
	"math"

	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/raster"
)

// GridPoint is one composite cell in lon/lat space.
type GridPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	GPS float64 `json:"gps"`
}

// GridChartData holds the prepared composite scatter for one run.
type GridChartData struct {
	Points    []GridPoint `json:"points"`
	MaxGPS    float64     `json:"max_gps"`
	Rows      int         `json:"rows"`
	Cols      int         `json:"cols"`
	Stride    int         `json:"stride"`
	NumPoints int         `json:"num_points"`
	Region    string      `json:"region"`
	RunID     string      `json:"run_id"`
}

// PrepareGridChartData flattens the composite grid into chart points,
// downsampling by stride to stay within maxPoints. Invalid cells are
// skipped entirely rather than plotted as zeros.
func PrepareGridChartData(g *raster.Grid, region, runID string, maxPoints int) *GridChartData {
	if g == nil {
		return &GridChartData{
			Points: []GridPoint{},
			Stride: 1,
			Region: region,
			RunID:  runID,
		}
	}

	if maxPoints <= 0 {
		maxPoints = defaultMaxChartPoints
	}

	stride := 1
	if g.NumCells() > maxPoints {
		stride = int(math.Ceil(float64(g.NumCells()) / float64(maxPoints)))
	}

	points := make([]GridPoint, 0, g.NumCells()/stride+1)
	maxGPS := 0.0
	for idx := 0; idx < g.NumCells(); idx += stride {
		if !g.IsValid(idx) {
			continue
		}
		v := g.Value(idx)
		if v > maxGPS {
			maxGPS = v
		}
		lon, lat := g.CellCenter(idx)
		points = append(points, GridPoint{Lon: lon, Lat: lat, GPS: v})
	}

	if maxGPS == 0 {
		maxGPS = 1
	}

	return &GridChartData{
		Points:    points,
		MaxGPS:    maxGPS,
		Rows:      g.Rows,
		Cols:      g.Cols,
		Stride:    stride,
		NumPoints: len(points),
		Region:    region,
		RunID:     runID,
	}
}

// Band is the display tier a site's score falls in. Thresholds match
// the priority tiers used in survey reports.
type Band string

const (
	BandPrime    Band = "prime"    // gps >= 0.85
	BandStrong   Band = "strong"   // gps >= 0.70
	BandModerate Band = "moderate" // gps >= 0.60
	BandFringe   Band = "fringe"
)

// BandFor returns the display tier for a GPS value.
func BandFor(gps float64) Band {
	switch {
	case gps >= 0.85:
		return BandPrime
	case gps >= 0.70:
		return BandStrong
	case gps >= 0.60:
		return BandModerate
	default:
		return BandFringe
	}
}

// SitePoint is one ranked site on the map.
type SitePoint struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	GPS       float64 `json:"gps"`
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	CellCount int     `json:"cell_count"`
	Band      Band    `json:"band"`
}

// SitesChartData holds the prepared site map for one run.
type SitesChartData struct {
	Sites    []SitePoint `json:"sites"`
	NumSites int         `json:"num_sites"`
	MaxGPS   float64     `json:"max_gps"`
	Region   string      `json:"region"`
	RunID    string      `json:"run_id"`
}

// PrepareSitesChartData converts ranked sites into map points with
// their display tiers. Point order follows site rank.
func PrepareSitesChartData(rr *geopulse.RunResult) *SitesChartData {
	if rr == nil {
		return &SitesChartData{Sites: []SitePoint{}}
	}

	pts := make([]SitePoint, 0, len(rr.Sites))
	for _, s := range rr.Sites {
		pts = append(pts, SitePoint{
			Lon:       s.Centroid.Lon(),
			Lat:       s.Centroid.Lat(),
			GPS:       s.Score,
			Rank:      s.Rank,
			Name:      s.Name,
			CellCount: s.CellCount,
			Band:      BandFor(s.Score),
		})
	}

	return &SitesChartData{
		Sites:    pts,
		NumSites: len(pts),
		MaxGPS:   rr.MaxGPS,
		Region:   rr.Region,
		RunID:    rr.RunID,
	}
}

package monitor

import (
	"bytes"
	"fmt"
	"html"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/geopulse-data/geopulse/internal/raster"
)

// echartsAssetsPrefix points generated pages at the public echarts
// asset bundle. The charts are debug surfaces; no local mirror is kept.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisRamp colours the continuous GPS scale from cold to hot.
var viridisRamp = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// bandColors maps display tiers to their map colours, hottest first.
var bandColors = map[Band]string{
	BandPrime:    "#d73027",
	BandStrong:   "#fc8d59",
	BandModerate: "#fee08b",
	BandFringe:   "#91cf60",
}

// chartAxes pads the extent so edge cells stay visible.
func chartAxes(e raster.Extent) (minLon, maxLon, minLat, maxLat float64) {
	padLon := e.Width() * 0.05
	padLat := e.Height() * 0.05
	return e.MinLon - padLon, e.MaxLon + padLon, e.MinLat - padLat, e.MaxLat + padLat
}

// handleGridChart renders the composite GPS grid as a coloured scatter
// (HTML) using go-echarts.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (c *Charts) handleGridChart(w http.ResponseWriter, r *http.Request) {
	rr := c.latest()
	if rr == nil || rr.Composite == nil {
		c.writeJSONError(w, http.StatusNotFound, "no completed run available")
		return
	}

	data := PrepareGridChartData(rr.Composite, rr.Region, rr.RunID, chartMaxPoints(r))
	pts := make([]opts.ScatterData, 0, len(data.Points))
	for _, p := range data.Points {
		pts = append(pts, opts.ScatterData{Value: []interface{}{p.Lon, p.Lat, p.GPS}})
	}

	minLon, maxLon, minLat, maxLat := chartAxes(rr.Composite.Extent)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GeoPulse Composite Grid", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Composite GPS Grid", Subtitle: fmt.Sprintf("region=%s run=%s cells=%d stride=%d", data.Region, data.RunID, data.NumPoints, data.Stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minLon, Max: maxLon, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minLat, Max: maxLat, Name: "Latitude", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(data.MaxGPS),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisRamp},
		}),
	)

	scatter.AddSeries("gps", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		c.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render grid chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleSitesChart renders the ranked candidate sites as a scatter map
// (HTML), one series per display tier so the legend doubles as a
// priority key.
func (c *Charts) handleSitesChart(w http.ResponseWriter, r *http.Request) {
	rr := c.latest()
	if rr == nil || rr.Composite == nil {
		c.writeJSONError(w, http.StatusNotFound, "no completed run available")
		return
	}

	data := PrepareSitesChartData(rr)
	byBand := make(map[Band][]opts.ScatterData)
	for _, s := range data.Sites {
		byBand[s.Band] = append(byBand[s.Band], opts.ScatterData{
			Name:       s.Name,
			Value:      []interface{}{s.Lon, s.Lat, s.GPS},
			SymbolSize: siteSymbolSize(s.CellCount),
		})
	}

	minLon, maxLon, minLat, maxLat := chartAxes(rr.Composite.Extent)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GeoPulse Candidate Sites", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Candidate Sites", Subtitle: fmt.Sprintf("region=%s run=%s sites=%d max_gps=%.3f", data.Region, data.RunID, data.NumSites, data.MaxGPS)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minLon, Max: maxLon, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minLat, Max: maxLat, Name: "Latitude", NameLocation: "middle", NameGap: 30}),
	)

	for _, band := range []Band{BandPrime, BandStrong, BandModerate, BandFringe} {
		pts := byBand[band]
		if len(pts) == 0 {
			continue
		}
		scatter.AddSeries(string(band), pts,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: bandColors[band]}),
		)
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		c.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render sites chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// siteSymbolSize grows markers with cluster footprint. Clamped so
// single-cell sites stay visible and sprawling clusters do not swallow
// the map.
func siteSymbolSize(cellCount int) int {
	size := 10 + 2*cellCount
	if size < 12 {
		return 12
	}
	if size > 36 {
		return 36
	}
	return size
}

// handleDashboard renders a simple dashboard with iframes to the debug
// charts.
func (c *Charts) handleDashboard(w http.ResponseWriter, r *http.Request) {
	region, runID := "no completed run", "-"
	if rr := c.latest(); rr != nil {
		region = rr.Region
		runID = rr.RunID
	}

	doc := fmt.Sprintf(dashboardHTML, html.EscapeString(region), html.EscapeString(runID))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

// dashboardHTML is the static shell for the debug dashboard. The two
// verbs are the escaped region name and run ID.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>GeoPulse Debug Dashboard</title>
<style>
body { background: #100c2a; color: #eee; font-family: sans-serif; margin: 0; padding: 16px; }
h1 { font-size: 20px; margin: 0 0 4px 0; }
.meta { color: #aaa; font-size: 13px; margin-bottom: 12px; }
.row { display: flex; flex-wrap: wrap; gap: 16px; }
iframe { border: 1px solid #333; background: #100c2a; width: 920px; height: 920px; }
img.heatmap { border: 1px solid #333; background: #fff; align-self: flex-start; }
</style>
</head>
<body>
<h1>GeoPulse Debug Dashboard</h1>
<div class="meta">region=%s run=%s</div>
<div class="row">
<iframe src="/debug/charts/gps"></iframe>
<iframe src="/debug/charts/sites"></iframe>
<img class="heatmap" src="/debug/charts/heatmap.png" alt="GPS heatmap">
</div>
</body>
</html>
`

package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/monitoring"
)

// defaultMaxChartPoints caps scatter payload size; larger grids render
// downsampled.
const defaultMaxChartPoints = 8000

// ResultSource provides the latest completed scoring run for charting.
// *geopulse.RunManager implements it.
type ResultSource interface {
	LastResult() *geopulse.RunResult
}

// Charts serves the debug chart endpoints. These are debugging-only
// surfaces with no auth, mounted under /debug/charts by the API server.
type Charts struct {
	source ResultSource
}

// NewCharts creates the chart handlers over the given result source.
func NewCharts(source ResultSource) *Charts {
	return &Charts{source: source}
}

// RegisterRoutes mounts every chart endpoint on mux. The bare and
// trailing-slash dashboard paths both resolve; named chart paths win
// over the subtree.
func (c *Charts) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/charts", c.handleDashboard)
	mux.HandleFunc("/debug/charts/", c.handleDashboard)
	mux.HandleFunc("/debug/charts/gps", c.handleGridChart)
	mux.HandleFunc("/debug/charts/sites", c.handleSitesChart)
	mux.HandleFunc("/debug/charts/heatmap.png", c.handleHeatmapPNG)
	mux.HandleFunc("/debug/charts/gps.json", c.handleGridJSON)
	mux.HandleFunc("/debug/charts/sites.json", c.handleSitesJSON)
}

// latest returns the newest completed run, or nil when none has
// finished yet.
func (c *Charts) latest() *geopulse.RunResult {
	if c.source == nil {
		return nil
	}
	return c.source.LastResult()
}

func (c *Charts) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response already started; nothing to send the client.
		monitoring.Logf("[Charts] JSON encoding error: %v", err)
	}
}

func (c *Charts) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// chartMaxPoints reads the max_points query param, clamped to a sane
// range.
func chartMaxPoints(r *http.Request) int {
	maxPoints := defaultMaxChartPoints
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	return maxPoints
}

// handleGridJSON returns composite grid chart data as JSON.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (c *Charts) handleGridJSON(w http.ResponseWriter, r *http.Request) {
	rr := c.latest()
	if rr == nil || rr.Composite == nil {
		c.writeJSONError(w, http.StatusNotFound, "no completed run available")
		return
	}

	data := PrepareGridChartData(rr.Composite, rr.Region, rr.RunID, chartMaxPoints(r))
	c.writeJSON(w, http.StatusOK, data)
}

// handleSitesJSON returns ranked site map data as JSON.
func (c *Charts) handleSitesJSON(w http.ResponseWriter, r *http.Request) {
	rr := c.latest()
	if rr == nil {
		c.writeJSONError(w, http.StatusNotFound, "no completed run available")
		return
	}

	c.writeJSON(w, http.StatusOK, PrepareSitesChartData(rr))
}

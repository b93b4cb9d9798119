package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/httputil"
	"github.com/geopulse-data/geopulse/internal/monitoring"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/security"
	"github.com/geopulse-data/geopulse/internal/version"
)

// RunResponse summarises a completed run for the trigger endpoint.
// Full geometry lives in the GeoJSON artifact and the runs endpoints.
type RunResponse struct {
	RunID      string        `json:"run_id"`
	Region     string        `json:"region"`
	SiteCount  int           `json:"site_count"`
	ValidCells int           `json:"valid_cells"`
	MaxGPS     float64       `json:"max_gps"`
	DurationMs float64       `json:"duration_ms"`
	Sites      []SiteSummary `json:"sites"`
}

// triggerRun handles POST /run. The optional JSON body is a sparse
// scoring config; set fields override the active config for this run
// only.
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	override := config.EmptyScoringConfig()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.BadRequest(w, "failed to read request body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, override); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	rc, err := geopulse.ResolveRunConfig(s.activeConfig().Merge(override))
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	rr, err := s.runs.Execute(r.Context(), rc)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	resp := RunResponse{
		RunID:      rr.RunID,
		Region:     rr.Region,
		SiteCount:  len(rr.Sites),
		ValidCells: rr.ValidCells,
		MaxGPS:     rr.MaxGPS,
		DurationMs: float64(rr.Duration().Nanoseconds()) / 1e6,
		Sites:      siteSummariesFromResult(rr),
	}
	httputil.WriteJSONOK(w, resp)
}

// writeRunError maps pipeline failures onto HTTP statuses. Bad
// parameters are the caller's fault; layers with no usable cells make
// the run unprocessable; everything else is a server-side failure.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var confErr *scoring.ConfigurationError
	var emptyErr *scoring.EmptyLayerError
	var noLayersErr *scoring.NoValidLayersError
	switch {
	case errors.As(err, &confErr):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &emptyErr), errors.As(err, &noLayersErr):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		monitoring.Logf("[API] Scoring run failed: %v", err)
		httputil.InternalServerError(w, fmt.Sprintf("scoring run failed: %v", err))
	}
}

// statusResponse is the manager snapshot plus build info.
type statusResponse struct {
	geopulse.StatusSnapshot
	Version string `json:"version"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, statusResponse{
		StatusSnapshot: s.runs.Status(),
		Version:        version.Version,
	})
}

// listRuns handles GET /api/runs - recent run history, newest first.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	limit := 20 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 500 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.GetRecentRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.ScoringRun{}
	}

	httputil.WriteJSONOK(w, runs)
}

// handleRunByID routes /api/runs/{id} and /api/runs/{id}/geojson.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		httputil.BadRequest(w, "missing run id")
		return
	}
	runID := pathParts[0]

	switch {
	case len(pathParts) == 1:
		s.showRun(w, r, runID)
	case len(pathParts) == 2 && pathParts[1] == "geojson":
		s.downloadRunGeoJSON(w, r, runID)
	default:
		httputil.NotFound(w, "not found")
	}
}

// runDetail pairs a run record with its persisted sites.
type runDetail struct {
	Run   db.ScoringRun `json:"run"`
	Sites []db.RunSite  `json:"sites"`
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.db.GetScoringRun(runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			httputil.NotFound(w, "run not found")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve run: %v", err))
		return
	}

	rows, err := s.db.GetRunSites(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve run sites: %v", err))
		return
	}
	if rows == nil {
		rows = []db.RunSite{}
	}

	httputil.WriteJSONOK(w, runDetail{Run: *run, Sites: rows})
}

// downloadRunGeoJSON serves the persisted feature collection for a
// finished run as a GeoJSON download.
func (s *Server) downloadRunGeoJSON(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.db.GetScoringRun(runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			httputil.NotFound(w, "run not found")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve run: %v", err))
		return
	}
	if run.Status != db.RunStatusDone {
		httputil.WriteJSONError(w, http.StatusConflict, fmt.Sprintf("run is %s, not %s", run.Status, db.RunStatusDone))
		return
	}

	rows, err := s.db.GetRunSites(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve run sites: %v", err))
		return
	}

	fc, err := runFeatureCollection(run, rows)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to rebuild feature collection: %v", err))
		return
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		httputil.InternalServerError(w, "failed to encode feature collection")
		return
	}

	filename := security.SanitizeFilename(fmt.Sprintf("geopulse_%s_%s.geojson", run.Region, run.RunID))
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}

// runFeatureCollection rebuilds the GeoJSON artifact for a persisted
// run from its database rows. Property names match the artifact
// encoder, so downloads and on-disk files stay interchangeable.
func runFeatureCollection(run *db.ScoringRun, rows []db.RunSite) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		geom, err := geojson.UnmarshalGeometry([]byte(row.GeometryJSON))
		if err != nil {
			return nil, fmt.Errorf("site %s has invalid geometry: %w", row.SiteID, err)
		}
		f := geojson.NewFeature(geom.Geometry())
		f.ID = row.SiteID
		f.Properties["site_id"] = row.SiteID
		f.Properties["name"] = row.Name
		f.Properties["rank"] = row.Rank
		f.Properties["gps"] = row.GPS
		f.Properties["peak_gps"] = row.PeakGPS
		f.Properties["mean_gps"] = row.MeanGPS
		f.Properties["cell_count"] = row.CellCount
		f.Properties["centroid_lon"] = row.CentroidLon
		f.Properties["centroid_lat"] = row.CentroidLat
		if row.AreaKm2 != nil {
			f.Properties["area_km2"] = *row.AreaKm2
		}
		if row.RadiusKm != nil {
			f.Properties["radius_km"] = *row.RadiusKm
		}
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{
		"run_id": run.RunID,
		"region": run.Region,
	}
	if run.FinishedAt != nil {
		fc.ExtraMembers["generated_at"] = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	if run.ConfigJSON != "" {
		fc.ExtraMembers["config"] = json.RawMessage(run.ConfigJSON)
	}
	return fc, nil
}

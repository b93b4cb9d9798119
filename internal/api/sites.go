package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/httputil"
	"github.com/geopulse-data/geopulse/internal/monitor"
)

// SiteSummary is the compact site row served by the API. The note
// carries the display tier so clients can colour rows without knowing
// the band thresholds.
type SiteSummary struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	GPS       float64 `json:"gps"`
	PeakGPS   float64 `json:"peak_gps"`
	MeanGPS   float64 `json:"mean_gps"`
	CellCount int     `json:"cell_count"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Note      string  `json:"note"`
}

func siteSummaryFromRow(row db.RunSite) SiteSummary {
	return SiteSummary{
		Rank:      row.Rank,
		Name:      row.Name,
		GPS:       row.GPS,
		PeakGPS:   row.PeakGPS,
		MeanGPS:   row.MeanGPS,
		CellCount: row.CellCount,
		Lat:       row.CentroidLat,
		Lon:       row.CentroidLon,
		Note:      string(monitor.BandFor(row.GPS)),
	}
}

func siteSummariesFromResult(rr *geopulse.RunResult) []SiteSummary {
	out := make([]SiteSummary, len(rr.Sites))
	for i, s := range rr.Sites {
		out[i] = SiteSummary{
			Rank:      s.Rank,
			Name:      s.Name,
			GPS:       s.Score,
			PeakGPS:   s.PeakScore,
			MeanGPS:   s.MeanScore,
			CellCount: s.CellCount,
			Lat:       s.Centroid.Lat(),
			Lon:       s.Centroid.Lon(),
			Note:      string(monitor.BandFor(s.Score)),
		}
	}
	return out
}

// sitesResponse names the run the sites came from, so a client polling
// the latest can tell when a new run has landed.
type sitesResponse struct {
	RunID  string        `json:"run_id"`
	Region string        `json:"region"`
	Sites  []SiteSummary `json:"sites"`
}

// listSites handles GET /api/sites - the ranked sites of the latest
// completed run, or of a specific run via ?run_id=.
func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	var run *db.ScoringRun
	var err error
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err = s.db.GetScoringRun(runID)
	} else {
		run, err = s.db.GetLatestCompletedRun()
	}
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no completed runs") {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve run: %v", err))
		return
	}

	rows, err := s.db.GetRunSites(run.RunID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve sites: %v", err))
		return
	}

	out := make([]SiteSummary, len(rows))
	for i, row := range rows {
		out[i] = siteSummaryFromRow(row)
	}

	httputil.WriteJSONOK(w, sitesResponse{
		RunID:  run.RunID,
		Region: run.Region,
		Sites:  out,
	})
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/httputil"
	"github.com/geopulse-data/geopulse/internal/monitoring"
)

// configResponse shows the sparse override set alongside the fully
// resolved parameters the next run would use.
type configResponse struct {
	Active   *config.ScoringConfig `json:"active"`
	Resolved geopulse.RunConfig    `json:"resolved"`
}

// handleConfig handles GET and POST to /api/config.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.showConfig(w, r)
	case http.MethodPost:
		s.updateConfig(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	active := s.activeConfig()
	rc, err := geopulse.ResolveRunConfig(active)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("active config does not resolve: %v", err))
		return
	}

	httputil.WriteJSONOK(w, configResponse{Active: active, Resolved: rc})
}

// updateConfig merges a sparse override into the active config. The
// merge is validated by resolving it before anything is applied, so a
// rejected update leaves the previous config untouched.
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	override := config.EmptyScoringConfig()
	if err := json.NewDecoder(r.Body).Decode(override); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	merged := s.activeConfig().Merge(override)
	rc, err := geopulse.ResolveRunConfig(merged)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	s.mu.Lock()
	s.cfg = merged
	s.mu.Unlock()

	if s.db != nil {
		cfgJSON, err := json.Marshal(merged)
		if err != nil {
			monitoring.Logf("[API] Failed to serialize config snapshot: %v", err)
		} else {
			appliedBy := r.RemoteAddr
			snap := &db.ConfigSnapshot{ConfigJSON: string(cfgJSON), AppliedBy: &appliedBy}
			if err := s.db.CreateConfigSnapshot(snap); err != nil {
				monitoring.Logf("[API] Failed to record config snapshot: %v", err)
			}
		}
	}

	httputil.WriteJSONOK(w, configResponse{Active: merged, Resolved: rc})
}

// listConfigHistory handles GET /api/config/history - recent config
// snapshots, newest first.
func (s *Server) listConfigHistory(w http.ResponseWriter, r *http.Request) {
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

	snaps, err := s.db.GetRecentConfigSnapshots(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve config history: %v", err))
		return
	}
	if snaps == nil {
		snaps = []db.ConfigSnapshot{}
	}

	httputil.WriteJSONOK(w, snaps)
}

// regionsResponse lists the fixed study areas with extents plus every
// selectable name, the env-driven custom region included.
type regionsResponse struct {
	Regions []config.Region `json:"regions"`
	Names   []string        `json:"names"`
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, regionsResponse{
		Regions: config.BuiltinRegions(),
		Names:   config.RegionNames(),
	})
}

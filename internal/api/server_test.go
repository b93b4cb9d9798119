package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/sources"
)

// fixedSource serves the same pre-built layer set for every load.
type fixedSource struct {
	layers raster.LayerSet
}

func (f *fixedSource) Load(ctx context.Context, region config.Region) (raster.LayerSet, []sources.LayerProvenance, error) {
	return f.layers, sources.Provenance(f.layers, "fixed"), nil
}

// emptySource serves co-registered grids with zero valid cells, the
// degenerate input that makes a run unprocessable.
type emptySource struct{}

func (emptySource) Load(ctx context.Context, region config.Region) (raster.LayerSet, []sources.LayerProvenance, error) {
	temp, err := raster.NewGrid(4, 4, region.Extent)
	if err != nil {
		return nil, nil, err
	}
	vuln, err := raster.NewGrid(4, 4, region.Extent)
	if err != nil {
		return nil, nil, err
	}
	ls := raster.LayerSet{
		raster.RoleTemperature:   {Role: raster.RoleTemperature, Grid: temp},
		raster.RoleVulnerability: {Role: raster.RoleVulnerability, Grid: vuln},
	}
	return ls, sources.Provenance(ls, "empty"), nil
}

// apiTestLayers builds a 4x4 temperature grid with a hot 2x2 block
// (rows 1-2, cols 1-2 at 10, everything else at 1) plus a constant
// vulnerability layer. Under minmax with temperature weighted alone,
// the block is the single expected site with score 1.0.
func apiTestLayers(t *testing.T, region config.Region) raster.LayerSet {
	t.Helper()

	temp, err := raster.NewGrid(4, 4, region.Extent)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	vuln, err := raster.NewGrid(4, 4, region.Extent)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			v := 1.0
			if row >= 1 && row <= 2 && col >= 1 && col <= 2 {
				v = 10.0
			}
			temp.SetValue(row, col, v)
			vuln.SetValue(row, col, 30.0)
		}
	}

	return raster.LayerSet{
		raster.RoleTemperature:   {Role: raster.RoleTemperature, Polarity: raster.Ascending, Grid: temp},
		raster.RoleVulnerability: {Role: raster.RoleVulnerability, Polarity: raster.Ascending, Grid: vuln},
	}
}

// apiTestConfig weights temperature alone under minmax so the test
// layers produce exactly one site.
func apiTestConfig() *config.ScoringConfig {
	minmax := "minmax"
	rows, cols := 4, 4
	return &config.ScoringConfig{
		Weights:       map[string]float64{"temperature": 1.0, "vulnerability": 0.0},
		NormalizeMode: &minmax,
		GridRows:      &rows,
		GridCols:      &cols,
	}
}

func setupTestServerWith(t *testing.T, source sources.LayerSource) (*Server, *db.DB) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	manager := geopulse.NewRunManager(database, source, "fixed", nil, nil)
	return NewServer(database, manager, apiTestConfig()), database
}

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	region, err := config.LookupRegion("southern_utah")
	if err != nil {
		t.Fatalf("LookupRegion failed: %v", err)
	}
	return setupTestServerWith(t, &fixedSource{layers: apiTestLayers(t, region)})
}

// completedRun triggers one run through the API and returns its ID.
func completedRun(t *testing.T, server *Server) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	w := httptest.NewRecorder()
	server.triggerRun(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("triggerRun: got status %d: %s", w.Code, w.Body.String())
	}

	var resp RunResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode run response: %v", err)
	}
	return resp.RunID
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{204, colorBoldGreen + "204" + colorReset},
		{302, colorYellow + "302" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{500, colorBoldRed + "500" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); got != tt.want {
			t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	LoggingMiddleware(inner).ServeHTTP(w, req)

	if !called {
		t.Error("middleware did not call the wrapped handler")
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("got status %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestHealthCheck(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("got Content-Type %q, want application/json", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"geopulse"`) || !strings.Contains(body, `"ok"`) {
		t.Errorf("unexpected health body: %s", body)
	}
}

func TestShowStatus(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.showStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status["state"] != "idle" {
		t.Errorf("got state %v, want idle", status["state"])
	}
	if status["version"] != "dev" {
		t.Errorf("got version %v, want dev", status["version"])
	}
}

func TestShowStatus_AfterRun(t *testing.T) {
	server, _ := setupTestServer(t)
	runID := completedRun(t, server)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.showStatus(w, req)

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status["state"] != "done" {
		t.Errorf("got state %v, want done", status["state"])
	}
	if status["last_run_id"] != runID {
		t.Errorf("got last_run_id %v, want %s", status["last_run_id"], runID)
	}
}

func TestServeMuxRoutes(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	paths := []string{
		"/api/status",
		"/api/regions",
		"/api/config",
		"/health",
		"/metrics",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: got status %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/run"},
		{http.MethodPost, "/api/status"},
		{http.MethodPost, "/api/sites"},
		{http.MethodPost, "/api/runs"},
		{http.MethodDelete, "/api/config"},
		{http.MethodPost, "/api/regions"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: got status %d, want %d", tt.method, tt.path, w.Code, http.StatusMethodNotAllowed)
		}
	}
}

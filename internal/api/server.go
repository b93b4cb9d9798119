// Package api exposes the scoring pipeline over HTTP: a trigger
// endpoint for new runs plus JSON queries over run history, sites,
// regions, and configuration.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/monitoring"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server wires the run manager and database behind the HTTP API. The
// active scoring config is swapped as a whole pointer on update, so
// in-flight runs keep the settings they started with.
type Server struct {
	db   *db.DB
	runs *geopulse.RunManager

	mu  sync.RWMutex
	cfg *config.ScoringConfig
}

// NewServer creates an API server. A nil cfg starts from the built-in
// defaults; a nil database disables the history endpoints.
func NewServer(database *db.DB, runs *geopulse.RunManager, cfg *config.ScoringConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyScoringConfig()
	}
	return &Server{
		db:   database,
		runs: runs,
		cfg:  cfg,
	}
}

// activeConfig returns the current override set. Callers must treat it
// as read-only; updateConfig swaps the pointer rather than mutating in
// place.
func (s *Server) activeConfig() *config.ScoringConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.triggerRun)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/sites", s.listSites)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/config/history", s.listConfigHistory)
	mux.HandleFunc("/api/regions", s.listRegions)
	mux.HandleFunc("/health", s.healthCheck)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "geopulse", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

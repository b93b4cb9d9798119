package geopulse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/monitoring"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/sites"
	"github.com/geopulse-data/geopulse/internal/sources"
	"github.com/geopulse-data/geopulse/internal/timeutil"
)

// State is the manager's lifecycle phase as shown on the dashboard.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// StatusSnapshot is a point-in-time view of the manager for the status
// API. Concurrent runs are not serialized; the snapshot reflects the
// most recent transition.
type StatusSnapshot struct {
	State       State     `json:"state"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastRunTime time.Time `json:"last_run_time,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// ArtifactWriter persists a completed run's feature collection and
// returns the artifact path. The results package implements it; an
// interface here keeps that dependency one-way.
type ArtifactWriter interface {
	WriteRunArtifact(rr *RunResult) (string, error)
}

// RunManager coordinates scoring run lifecycle: persistence, metrics,
// and the status the dashboard polls. It is safe for concurrent use.
// Each Execute call builds all of its grids locally, so concurrent
// runs never share cell storage.
type RunManager struct {
	db         *db.DB
	source     sources.LayerSource
	sourceName string
	writer     ArtifactWriter
	clock      timeutil.Clock
	metrics    *monitoring.Metrics

	mu          sync.RWMutex
	state       State
	lastRunID   string
	lastRunTime time.Time
	lastError   string
	lastResult  *RunResult
}

// NewRunManager creates a manager executing runs against the given
// layer source. A nil database disables persistence (the offline tools
// run that way); a nil clock gets the real clock; nil metrics get an
// unregistered set so tests never collide on the default registry.
func NewRunManager(database *db.DB, source sources.LayerSource, sourceName string, clock timeutil.Clock, metrics *monitoring.Metrics) *RunManager {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsForTesting()
	}
	return &RunManager{
		db:         database,
		source:     source,
		sourceName: sourceName,
		clock:      clock,
		metrics:    metrics,
		state:      StateIdle,
	}
}

// SetArtifactWriter wires the GeoJSON writer invoked for every
// completed run. Call before the first Execute.
func (m *RunManager) SetArtifactWriter(w ArtifactWriter) {
	m.writer = w
}

// Status returns the current lifecycle snapshot.
func (m *RunManager) Status() StatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return StatusSnapshot{
		State:       m.state,
		LastRunID:   m.lastRunID,
		LastRunTime: m.lastRunTime,
		LastError:   m.lastError,
	}
}

// LastResult returns the most recent completed run, or nil before the
// first success. Results are immutable once published, so callers read
// the composite grid and sites without copying.
func (m *RunManager) LastResult() *RunResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// Execute runs the full pipeline synchronously: record the run, load
// layers, normalize, composite, extract, persist. It returns after the
// result is durable or the run has been marked failed. Stage faults
// are deterministic for a given configuration and input, so nothing is
// retried and no partial result survives.
func (m *RunManager) Execute(ctx context.Context, rc RunConfig) (*RunResult, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	startedAt := m.clock.Now()

	configJSON, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run config: %w", err)
	}

	m.setRunning(runID)
	m.metrics.RunsStarted.Inc()
	m.metrics.RunActive.Inc()
	defer m.metrics.RunActive.Dec()

	monitoring.Logf("[RunManager] Started run %s for region %s", runID, rc.Region.Name)

	if m.db != nil {
		run := &db.ScoringRun{
			RunID:      runID,
			Region:     rc.Region.Name,
			Status:     db.RunStatusRunning,
			Source:     m.sourceName,
			ConfigJSON: string(configJSON),
			GridRows:   rc.GridRows,
			GridCols:   rc.GridCols,
			StartedAt:  startedAt,
		}
		if err := m.db.CreateScoringRun(run); err != nil {
			err = fmt.Errorf("failed to record run start: %w", err)
			m.noteFailure(runID, err)
			return nil, err
		}
	}

	rr, err := m.execute(ctx, runID, startedAt, rc)
	if err != nil {
		m.failRun(runID, err)
		return nil, err
	}
	m.completeRun(rr)
	return rr, nil
}

// execute drives the pipeline stages and builds the result. The caller
// owns the run row transitions.
func (m *RunManager) execute(ctx context.Context, runID string, startedAt time.Time, rc RunConfig) (*RunResult, error) {
	stageStart := m.clock.Now()
	layers, provenance, err := m.source.Load(ctx, rc.Region)
	if err != nil {
		return nil, fmt.Errorf("layer load failed: %w", err)
	}
	if err := layers.Validate(); err != nil {
		return nil, scoring.NewConfigurationError("pipeline", "%s", err)
	}
	m.observeStage(StageLoad, stageStart)
	for _, p := range provenance {
		m.metrics.LayerValidCells.WithLabelValues(p.Role).Set(float64(p.ValidCells))
	}

	stageStart = m.clock.Now()
	normalized, err := normalizeLayers(layers, rc)
	if err != nil {
		return nil, err
	}
	m.observeStage(StageNormalize, stageStart)

	stageStart = m.clock.Now()
	composite, err := scoring.Composite(normalized, rc.Weights)
	if err != nil {
		return nil, err
	}
	m.observeStage(StageComposite, stageStart)

	stageStart = m.clock.Now()
	candidates, err := sites.Extract(composite, rc.Extract)
	if err != nil {
		return nil, err
	}
	m.observeStage(StageExtract, stageStart)

	maxGPS, _ := composite.MaxValid()
	rr := &RunResult{
		RunID:      runID,
		Region:     rc.Region.Name,
		StartedAt:  startedAt,
		FinishedAt: m.clock.Now(),
		Sites:      candidates,
		Config:     rc,
		Provenance: provenance,
		ValidCells: composite.CountValid(),
		MaxGPS:     maxGPS,
		Composite:  composite,
	}

	stageStart = m.clock.Now()
	if err := m.persist(ctx, rr); err != nil {
		return nil, err
	}
	m.observeStage(StagePersist, stageStart)
	return rr, nil
}

// persist writes the artifact and the site rows, then finalizes the
// run record.
func (m *RunManager) persist(ctx context.Context, rr *RunResult) error {
	if m.writer != nil {
		path, err := m.writer.WriteRunArtifact(rr)
		if err != nil {
			return fmt.Errorf("failed to write run artifact: %w", err)
		}
		rr.ArtifactPath = path
	}

	if m.db == nil {
		return nil
	}

	rows := make([]db.RunSite, 0, len(rr.Sites))
	for _, s := range rr.Sites {
		row, err := runSiteRow(rr.RunID, s)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := m.db.InsertRunSites(ctx, rr.RunID, rows); err != nil {
		return fmt.Errorf("failed to persist run sites: %w", err)
	}
	if err := m.db.CompleteScoringRun(rr.RunID, len(rr.Sites), rr.ValidCells, rr.MaxGPS, rr.ArtifactPath, rr.FinishedAt); err != nil {
		return fmt.Errorf("failed to finalize scoring run: %w", err)
	}
	return nil
}

// runSiteRow flattens one candidate site into its persisted form. The
// geometry lands as GeoJSON text so the run detail endpoint can serve
// it without re-deriving hulls.
func runSiteRow(runID string, s sites.CandidateSite) (db.RunSite, error) {
	geomJSON, err := json.Marshal(geojson.NewGeometry(s.Geometry()))
	if err != nil {
		return db.RunSite{}, fmt.Errorf("failed to encode geometry for site %s: %w", s.ID, err)
	}

	row := db.RunSite{
		RunID:        runID,
		SiteID:       s.ID,
		Name:         s.Name,
		Rank:         s.Rank,
		GPS:          s.Score,
		PeakGPS:      s.PeakScore,
		MeanGPS:      s.MeanScore,
		CellCount:    s.CellCount,
		CentroidLon:  s.Centroid.Lon(),
		CentroidLat:  s.Centroid.Lat(),
		GeometryJSON: string(geomJSON),
	}
	if len(s.Hull) > 0 {
		area := s.AreaKm2
		row.AreaKm2 = &area
	} else {
		radius := s.RadiusKm
		row.RadiusKm = &radius
	}
	return row, nil
}

func (m *RunManager) setRunning(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateRunning
	m.lastRunID = runID
}

// completeRun records the successful transition and its metrics.
func (m *RunManager) completeRun(rr *RunResult) {
	duration := rr.Duration()
	m.metrics.RunOutcomes.WithLabelValues("completed").Inc()
	m.metrics.RunDuration.Observe(duration.Seconds())
	m.metrics.SitesPerRun.Observe(float64(len(rr.Sites)))
	m.metrics.LastMaxGPS.Set(rr.MaxGPS)

	m.mu.Lock()
	m.state = StateDone
	m.lastRunID = rr.RunID
	m.lastRunTime = rr.FinishedAt
	m.lastError = ""
	m.lastResult = rr
	m.mu.Unlock()

	monitoring.Logf("[RunManager] Completed run %s: %d sites, max GPS %.3f in %.2fs",
		rr.RunID, len(rr.Sites), rr.MaxGPS, duration.Seconds())
}

// failRun marks the run failed in the store and the status snapshot.
func (m *RunManager) failRun(runID string, runErr error) {
	if m.db != nil {
		if err := m.db.FailScoringRun(runID, runErr.Error(), m.clock.Now()); err != nil {
			monitoring.Logf("[RunManager] Failed to record failure for run %s: %v", runID, err)
		}
	}
	m.noteFailure(runID, runErr)
}

// noteFailure updates metrics and the snapshot without touching the
// store, for faults before the run row exists.
func (m *RunManager) noteFailure(runID string, runErr error) {
	m.metrics.RunOutcomes.WithLabelValues("failed").Inc()

	m.mu.Lock()
	m.state = StateError
	m.lastRunID = runID
	m.lastRunTime = m.clock.Now()
	m.lastError = runErr.Error()
	m.mu.Unlock()

	monitoring.Logf("[RunManager] Failed run %s: %v", runID, runErr)
}

func (m *RunManager) observeStage(stage string, start time.Time) {
	m.metrics.StageDuration.WithLabelValues(stage).Observe(m.clock.Since(start).Seconds())
}

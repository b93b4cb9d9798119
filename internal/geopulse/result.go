package geopulse

import (
	"time"

	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/sites"
	"github.com/geopulse-data/geopulse/internal/sources"
)

// RunResult is the immutable outcome of one pipeline execution: the
// ranked sites in rank order plus the resolved parameters and layer
// provenance that produced them.
type RunResult struct {
	RunID      string                    `json:"run_id"`
	Region     string                    `json:"region"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Sites      []sites.CandidateSite     `json:"sites"`
	Config     RunConfig                 `json:"config"`
	Provenance []sources.LayerProvenance `json:"provenance"`

	// Run-level stats, persisted with the run record.
	ValidCells int     `json:"valid_cells"`
	MaxGPS     float64 `json:"max_gps"`

	// ArtifactPath is where the GeoJSON artifact landed, when a writer
	// is wired.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// Composite is the scored grid snapshot consumed by the debug
	// charts. Not serialized.
	Composite *raster.Grid `json:"-"`
}

// Duration returns the wall time the run took.
func (rr *RunResult) Duration() time.Duration {
	return rr.FinishedAt.Sub(rr.StartedAt)
}

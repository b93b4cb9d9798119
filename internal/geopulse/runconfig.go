package geopulse

import (
	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/sites"
)

// RunConfig is the fully resolved parameter set for one scoring run.
// Built once from the scoring config (plus any request overrides) and
// passed through the pipeline by value; stages never read process-wide
// state. Serialized into the run record and the GeoJSON artifact so a
// result can always be traced back to its exact parameters.
type RunConfig struct {
	Region    config.Region           `json:"region"`
	GridRows  int                     `json:"grid_rows"`
	GridCols  int                     `json:"grid_cols"`
	Normalize scoring.NormalizeParams `json:"normalize"`

	// NormalizeByRole replaces Normalize for specific layers. Layers
	// without an entry use the shared params.
	NormalizeByRole map[raster.LayerRole]scoring.NormalizeParams `json:"normalize_overrides,omitempty"`

	Weights   scoring.WeightSpec `json:"weights"`
	Extract   sites.Params       `json:"extract"`
	OutputDir string             `json:"output_dir"`
}

// ResolveRunConfig builds the effective run parameters from a scoring
// config. A nil config resolves to the defaults.
func ResolveRunConfig(cfg *config.ScoringConfig) (RunConfig, error) {
	if cfg == nil {
		cfg = config.EmptyScoringConfig()
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, scoring.NewConfigurationError("config", "%s", err)
	}
	region, err := config.LookupRegion(cfg.GetRegion())
	if err != nil {
		return RunConfig{}, scoring.NewConfigurationError("config", "%s", err)
	}

	rc := RunConfig{
		Region:          region,
		GridRows:        cfg.GetGridRows(),
		GridCols:        cfg.GetGridCols(),
		Normalize:       cfg.NormalizeParams(),
		NormalizeByRole: cfg.ResolvedNormalizeOverrides(),
		Weights:         cfg.GetWeights(),
		Extract:         cfg.ExtractParams(),
		OutputDir:       cfg.GetOutputDir(),
	}
	if err := rc.Validate(); err != nil {
		return RunConfig{}, err
	}
	return rc, nil
}

// Validate checks the assembled parameters as one unit. Resolution
// already validates the pieces; this also guards configs assembled by
// hand in tools and tests.
func (rc RunConfig) Validate() error {
	if rc.Region.Name == "" {
		return scoring.NewConfigurationError("config", "no region resolved")
	}
	if err := rc.Region.Extent.Validate(); err != nil {
		return scoring.NewConfigurationError("config", "region %q: %s", rc.Region.Name, err)
	}
	if rc.GridRows < 1 || rc.GridCols < 1 {
		return scoring.NewConfigurationError("config", "grid dimensions must be positive, got %dx%d", rc.GridRows, rc.GridCols)
	}
	if err := rc.Normalize.Validate(); err != nil {
		return err
	}
	for role, p := range rc.NormalizeByRole {
		if _, err := raster.ParseRole(string(role)); err != nil {
			return scoring.NewConfigurationError("config", "normalize override: %s", err)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if err := rc.Weights.Validate(); err != nil {
		return err
	}
	return rc.Extract.Validate()
}

// NormalizeParamsFor returns the normalization parameters for one
// layer, honouring any per-layer override.
func (rc RunConfig) NormalizeParamsFor(role raster.LayerRole) scoring.NormalizeParams {
	if p, ok := rc.NormalizeByRole[role]; ok {
		return p
	}
	return rc.Normalize
}

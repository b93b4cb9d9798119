package geopulse

import (
	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/sites"
)

// Stage labels used in pipeline duration metrics.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageComposite = "composite"
	StageExtract   = "extract"
	StagePersist   = "persist"
)

// normalizeLayers rescales every positively weighted layer onto the
// common [0,1] suitability scale. Zero-weighted layers are skipped
// entirely: they contribute nothing to the composite, so even a layer
// with no valid cells cannot fail the run once its weight is zero.
func normalizeLayers(layers raster.LayerSet, rc RunConfig) (map[raster.LayerRole]*raster.Grid, error) {
	active := rc.Weights.Positive()
	normalized := make(map[raster.LayerRole]*raster.Grid, len(layers))
	for _, role := range layers.Roles() {
		if _, ok := active[role]; !ok {
			continue
		}
		grid, err := scoring.Normalize(layers[role], rc.NormalizeParamsFor(role))
		if err != nil {
			return nil, err
		}
		normalized[role] = grid
	}
	return normalized, nil
}

// ScoreLayers runs the pure scoring stages over loaded layers:
// normalize, composite, extract. The offline tools call it directly;
// RunManager.Execute drives the same stages with persistence and
// metrics around them.
func ScoreLayers(layers raster.LayerSet, rc RunConfig) (*raster.Grid, []sites.CandidateSite, error) {
	if err := layers.Validate(); err != nil {
		return nil, nil, scoring.NewConfigurationError("pipeline", "%s", err)
	}
	normalized, err := normalizeLayers(layers, rc)
	if err != nil {
		return nil, nil, err
	}
	composite, err := scoring.Composite(normalized, rc.Weights)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := sites.Extract(composite, rc.Extract)
	if err != nil {
		return nil, nil, err
	}
	return composite, candidates, nil
}

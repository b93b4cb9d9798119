// Package sources supplies the co-registered input layers a scoring run
// consumes. Every implementation resolves the same contract: a validated
// raster.LayerSet over the requested region, plus provenance records
// naming where each layer came from.
package sources

import (
	"context"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/raster"
)

// LayerSource loads the input layers for one scoring run. Load returns
// a LayerSet that has already passed raster.LayerSet.Validate, so the
// pipeline can assume co-registration. Every call builds fresh grids;
// implementations are safe for concurrent use.
type LayerSource interface {
	Load(ctx context.Context, region config.Region) (raster.LayerSet, []LayerProvenance, error)
}

// LayerProvenance records where one input layer came from and how much
// of the grid it covered. Serialized with run results so a scored
// artifact names its inputs.
type LayerProvenance struct {
	Role       string `json:"role"`
	Source     string `json:"source"`
	Cells      int    `json:"cells"`
	ValidCells int    `json:"valid_cells"`
}

// Provenance builds the provenance records for a loaded layer set, one
// per layer in stable role order.
func Provenance(ls raster.LayerSet, source string) []LayerProvenance {
	out := make([]LayerProvenance, 0, len(ls))
	for _, role := range ls.Roles() {
		grid := ls[role].Grid
		out = append(out, LayerProvenance{
			Role:       string(role),
			Source:     source,
			Cells:      grid.NumCells(),
			ValidCells: grid.CountValid(),
		})
	}
	return out
}

package scoring

import (
	"sort"

	"github.com/geopulse-data/geopulse/internal/raster"
)

// Composite combines normalized layers into the single GPS grid via a
// local per-cell weighted average: each cell is the weighted mean of the
// layers valid at that cell, divided by the sum of the weights of those
// layers only. A layer missing or invalid at a cell simply drops out of
// both sums there; a cell with no valid contributor is invalid in the
// output.
//
// Every input grid must share the same shape (callers validate the
// LayerSet at pipeline entry; this re-checks because the maps can be
// assembled independently). Returns NoValidLayersError when zero cells
// anywhere received a contribution, which indicates disjoint extents or
// a weight spec that zeroes out every populated layer.
func Composite(normalized map[raster.LayerRole]*raster.Grid, weights WeightSpec) (*raster.Grid, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	// Contributions are accumulated in stable role order so repeated runs
	// produce bit-identical composites (float addition is order sensitive).
	type contributor struct {
		grid   *raster.Grid
		weight float64
	}
	active := weights.Positive()
	var contributors []contributor

	var reference *raster.Grid
	for _, role := range rolesOf(normalized) {
		grid := normalized[role]
		if grid == nil {
			return nil, NewConfigurationError("composite", "normalized layer %q is nil", role)
		}
		if reference == nil {
			reference = grid
		} else if !reference.SameShape(grid) {
			return nil, NewConfigurationError("composite", "normalized layer %q is not co-registered with the other layers", role)
		}
		if weight, ok := active[role]; ok {
			contributors = append(contributors, contributor{grid: grid, weight: weight})
		}
	}
	if reference == nil {
		return nil, NewConfigurationError("composite", "no normalized layers supplied")
	}

	out, err := raster.NewGrid(reference.Rows, reference.Cols, reference.Extent)
	if err != nil {
		return nil, NewConfigurationError("composite", "%v", err)
	}

	contributed := false
	for idx := 0; idx < reference.NumCells(); idx++ {
		var weightedSum, weightSum float64
		for _, c := range contributors {
			if !c.grid.IsValid(idx) {
				continue
			}
			weightedSum += c.weight * c.grid.Value(idx)
			weightSum += c.weight
		}
		if weightSum == 0 {
			continue
		}
		row, col := reference.RowCol(idx)
		out.SetValue(row, col, weightedSum/weightSum)
		contributed = true
	}

	if !contributed {
		return nil, &NoValidLayersError{}
	}
	return out, nil
}

// rolesOf returns map keys in stable order so validation errors are
// deterministic across runs.
func rolesOf(m map[raster.LayerRole]*raster.Grid) []raster.LayerRole {
	roles := make([]raster.LayerRole, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

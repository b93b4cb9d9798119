package raster

import (
	"fmt"
	"math"
)

// Grid is a dense 2D raster over a fixed extent. Cells are stored
// row-major: Idx(row, col) = row*Cols + col, with row 0 at the northern
// edge. Each cell carries a value and a validity flag; invalid cells are
// excluded from all statistics and scoring.
type Grid struct {
	Rows   int
	Cols   int
	Extent Extent

	values []float64
	valid  []bool
}

// NewGrid allocates a grid with every cell marked invalid. Callers fill
// cells with SetValue as data arrives.
func NewGrid(rows, cols int, extent Extent) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	if err := extent.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		Rows:   rows,
		Cols:   cols,
		Extent: extent,
		values: make([]float64, rows*cols),
		valid:  make([]bool, rows*cols),
	}, nil
}

// Idx converts (row, col) to the flat cell index.
func (g *Grid) Idx(row, col int) int {
	return row*g.Cols + col
}

// RowCol converts a flat cell index back to (row, col).
func (g *Grid) RowCol(idx int) (row, col int) {
	return idx / g.Cols, idx % g.Cols
}

// NumCells returns the total cell count.
func (g *Grid) NumCells() int {
	return g.Rows * g.Cols
}

// InBounds reports whether (row, col) addresses a cell of this grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Value returns the raw value at a flat index regardless of validity.
func (g *Grid) Value(idx int) float64 {
	return g.values[idx]
}

// IsValid reports whether the cell at a flat index holds real data.
func (g *Grid) IsValid(idx int) bool {
	return g.valid[idx]
}

// At returns the value at (row, col) and whether it is valid.
func (g *Grid) At(row, col int) (float64, bool) {
	idx := g.Idx(row, col)
	return g.values[idx], g.valid[idx]
}

// SetValue stores a value at (row, col) and marks the cell valid.
// NaN and Inf are rejected silently as invalid rather than stored; a
// layer source that wants a cell excluded marks it with SetInvalid.
func (g *Grid) SetValue(row, col int, v float64) {
	idx := g.Idx(row, col)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		g.values[idx] = 0
		g.valid[idx] = false
		return
	}
	g.values[idx] = v
	g.valid[idx] = true
}

// SetInvalid marks the cell at (row, col) as holding no data.
func (g *Grid) SetInvalid(row, col int) {
	idx := g.Idx(row, col)
	g.values[idx] = 0
	g.valid[idx] = false
}

// SameShape reports whether two grids are co-registered: identical
// dimensions and equal extents. All layers in one run must satisfy this.
func (g *Grid) SameShape(other *Grid) bool {
	if other == nil {
		return false
	}
	return g.Rows == other.Rows && g.Cols == other.Cols && g.Extent.Equal(other.Extent)
}

// Clone returns a deep copy. Concurrent runs never share cell storage,
// so every pipeline stage that needs a same-shaped output starts from a
// clone or a fresh grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Rows:   g.Rows,
		Cols:   g.Cols,
		Extent: g.Extent,
		values: make([]float64, len(g.values)),
		valid:  make([]bool, len(g.valid)),
	}
	copy(out.values, g.values)
	copy(out.valid, g.valid)
	return out
}

// CountValid returns the number of valid cells.
func (g *Grid) CountValid() int {
	n := 0
	for _, ok := range g.valid {
		if ok {
			n++
		}
	}
	return n
}

// ValidValues returns a fresh slice of all valid cell values in flat
// index order. The caller may sort or mutate it freely.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.values))
	for i, ok := range g.valid {
		if ok {
			out = append(out, g.values[i])
		}
	}
	return out
}

// MaxValid returns the largest valid value, or false if no cell is valid.
func (g *Grid) MaxValid() (float64, bool) {
	found := false
	max := 0.0
	for i, ok := range g.valid {
		if !ok {
			continue
		}
		if !found || g.values[i] > max {
			max = g.values[i]
			found = true
		}
	}
	return max, found
}

// MinMaxValid returns the smallest and largest valid values, or false if
// no cell is valid.
func (g *Grid) MinMaxValid() (min, max float64, ok bool) {
	found := false
	for i, v := range g.values {
		if !g.valid[i] {
			continue
		}
		if !found {
			min, max = v, v
			found = true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, found
}

// CellCenter returns the lon/lat centre of the cell at a flat index.
func (g *Grid) CellCenter(idx int) (lon, lat float64) {
	row, col := g.RowCol(idx)
	return g.Extent.CellCenter(g.Rows, g.Cols, row, col)
}

package raster

import (
	"fmt"
	"math"
)

// extentEqualEpsilon is the tolerance used when comparing extents for
// co-registration. Bundles produced by different export paths can carry
// sub-centimetre rounding differences that do not affect cell alignment.
const extentEqualEpsilon = 1e-9

// Extent is a WGS84 bounding box in decimal degrees.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Validate checks that the box is well-formed: min strictly below max on
// both axes and latitudes within [-90, 90].
func (e Extent) Validate() error {
	if e.MinLon >= e.MaxLon {
		return fmt.Errorf("extent min_lon (%v) must be less than max_lon (%v)", e.MinLon, e.MaxLon)
	}
	if e.MinLat >= e.MaxLat {
		return fmt.Errorf("extent min_lat (%v) must be less than max_lat (%v)", e.MinLat, e.MaxLat)
	}
	if e.MinLat < -90 || e.MaxLat > 90 {
		return fmt.Errorf("extent latitudes [%v, %v] outside [-90, 90]", e.MinLat, e.MaxLat)
	}
	return nil
}

// Equal reports whether two extents describe the same box within
// extentEqualEpsilon on every edge.
func (e Extent) Equal(other Extent) bool {
	return math.Abs(e.MinLon-other.MinLon) < extentEqualEpsilon &&
		math.Abs(e.MinLat-other.MinLat) < extentEqualEpsilon &&
		math.Abs(e.MaxLon-other.MaxLon) < extentEqualEpsilon &&
		math.Abs(e.MaxLat-other.MaxLat) < extentEqualEpsilon
}

// Width returns the longitudinal span in degrees.
func (e Extent) Width() float64 { return e.MaxLon - e.MinLon }

// Height returns the latitudinal span in degrees.
func (e Extent) Height() float64 { return e.MaxLat - e.MinLat }

// CellCenter returns the lon/lat of the centre of cell (row, col) when the
// extent is divided into rows x cols cells. Row 0 is the northern edge so
// grids read top-down like the rasters they are exported from.
func (e Extent) CellCenter(rows, cols, row, col int) (lon, lat float64) {
	cellW := e.Width() / float64(cols)
	cellH := e.Height() / float64(rows)
	lon = e.MinLon + (float64(col)+0.5)*cellW
	lat = e.MaxLat - (float64(row)+0.5)*cellH
	return lon, lat
}

// CellCorners returns the four corner coordinates of cell (row, col) in
// counter-clockwise order starting at the south-west corner.
func (e Extent) CellCorners(rows, cols, row, col int) [4][2]float64 {
	cellW := e.Width() / float64(cols)
	cellH := e.Height() / float64(rows)
	west := e.MinLon + float64(col)*cellW
	east := west + cellW
	north := e.MaxLat - float64(row)*cellH
	south := north - cellH
	return [4][2]float64{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
	}
}

func (e Extent) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", e.MinLon, e.MinLat, e.MaxLon, e.MaxLat)
}

package sites

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/units"
)

// clusterCentroid returns the unweighted mean of the member cell centres.
func clusterCentroid(g *raster.Grid, cells []int) orb.Point {
	var sumLon, sumLat float64
	for _, idx := range cells {
		lon, lat := g.CellCenter(idx)
		sumLon += lon
		sumLat += lat
	}
	n := float64(len(cells))
	return orb.Point{sumLon / n, sumLat / n}
}

// enclosingRadiusKm returns the distance from the centroid to the farthest
// member cell centre, padded by half a cell diagonal so the circle covers
// the full footprint of every member cell.
func enclosingRadiusKm(g *raster.Grid, cells []int, centroid orb.Point) float64 {
	maxKm := 0.0
	for _, idx := range cells {
		lon, lat := g.CellCenter(idx)
		if d := units.HaversineKm(centroid[0], centroid[1], lon, lat); d > maxKm {
			maxKm = d
		}
	}
	cellW := g.Extent.Width() / float64(g.Cols)
	cellH := g.Extent.Height() / float64(g.Rows)
	return maxKm + units.CellDiagonalKm(cellW, cellH, centroid[1])/2
}

// clusterHull returns the convex hull of the member cell corners as a
// single-ring polygon with a closed ring. A single-cell cluster yields
// the cell rectangle.
func clusterHull(g *raster.Grid, cells []int) orb.Polygon {
	pts := make([]orb.Point, 0, len(cells)*4)
	for _, idx := range cells {
		row, col := g.RowCol(idx)
		for _, c := range g.Extent.CellCorners(g.Rows, g.Cols, row, col) {
			pts = append(pts, orb.Point{c[0], c[1]})
		}
	}
	ring := convexHull(pts)
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// hullAreaKm2 converts a hull's planar area from square degrees to square
// kilometres using an equirectangular approximation at the given latitude.
// Adequate at site scale; the error stays well under 1%.
func hullAreaKm2(hull orb.Polygon, latDeg float64) float64 {
	areaDeg2 := math.Abs(planar.Area(hull))
	return areaDeg2 * units.KmPerDegreeLat * units.KmPerDegreeLon(latDeg)
}

// convexHull computes the convex hull of a point set with the monotone
// chain algorithm. Returns the hull counter-clockwise without the closing
// point; collinear boundary points are dropped.
func convexHull(pts []orb.Point) orb.Ring {
	if len(pts) == 0 {
		return nil
	}
	sorted := make([]orb.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	// Adjacent cells share corners; deduplicate after sorting.
	uniq := sorted[:1]
	for _, p := range sorted[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return orb.Ring(uniq)
	}

	var lower []orb.Point
	for _, p := range uniq {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []orb.Point
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// Each chain ends where the other begins; drop the duplicated endpoints.
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return orb.Ring(hull)
}

// cross returns the z component of (a-o) x (b-o). Positive means the turn
// o -> a -> b is counter-clockwise.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

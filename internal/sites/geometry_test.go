package sites

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/units"
)

func TestConvexHull_SquareWithInteriorPoint(t *testing.T) {
	pts := []orb.Point{
		{0, 0}, {2, 0}, {2, 2}, {0, 2},
		{1, 1}, // interior, must not appear on the hull
	}
	hull := convexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %v", len(hull), hull)
	}
	for _, p := range hull {
		if p == (orb.Point{1, 1}) {
			t.Error("interior point leaked onto the hull")
		}
	}
}

func TestConvexHull_DropsCollinearPoints(t *testing.T) {
	pts := []orb.Point{
		{0, 0}, {1, 0}, {2, 0},
		{0, 1}, {2, 1},
	}
	hull := convexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %v", len(hull), hull)
	}
	for _, p := range hull {
		if p == (orb.Point{1, 0}) {
			t.Error("collinear midpoint should not be a hull vertex")
		}
	}
}

func TestConvexHull_CounterClockwise(t *testing.T) {
	hull := convexHull([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	if len(hull) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(hull))
	}
	// Shoelace sum is positive for counter-clockwise rings.
	var area float64
	for i := range hull {
		j := (i + 1) % len(hull)
		area += hull[i][0]*hull[j][1] - hull[j][0]*hull[i][1]
	}
	if area <= 0 {
		t.Errorf("expected counter-clockwise winding, shoelace sum %v", area)
	}
}

func TestClusterHull_SingleCellIsClosedRectangle(t *testing.T) {
	g, err := raster.NewGrid(2, 2, raster.Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	// Cell (0,0) occupies lon [0,1], lat [1,2].
	hull := clusterHull(g, []int{0})
	if len(hull) != 1 {
		t.Fatalf("expected a single ring, got %d", len(hull))
	}
	ring := hull[0]
	if len(ring) != 5 {
		t.Fatalf("expected a closed 4-corner ring (5 points), got %d: %v", len(ring), ring)
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring must be closed")
	}

	for _, want := range []orb.Point{{0, 1}, {1, 1}, {1, 2}, {0, 2}} {
		found := false
		for _, p := range ring[:4] {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("corner %v missing from ring %v", want, ring)
		}
	}
}

func TestClusterHull_LShapedCluster(t *testing.T) {
	g, err := raster.NewGrid(2, 2, raster.Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	// North-west, north-east and south-west cells form an L. Its hull is
	// a pentagon: the notch corner is bridged by the edge (1,0)-(2,1).
	cells := []int{g.Idx(0, 0), g.Idx(0, 1), g.Idx(1, 0)}
	hull := clusterHull(g, cells)
	ring := hull[0]

	want := orb.Ring{{0, 0}, {1, 0}, {2, 1}, {2, 2}, {0, 2}, {0, 0}}
	if len(ring) != len(want) {
		t.Fatalf("expected a closed pentagon %v, got %v", want, ring)
	}
	for i := range want {
		if ring[i] != want[i] {
			t.Fatalf("vertex %d: expected %v, got %v (ring %v)", i, want[i], ring[i], ring)
		}
	}
}

func TestHullAreaKm2_SingleCell(t *testing.T) {
	e := raster.Extent{MinLon: -114.0, MinLat: 37.0, MaxLon: -111.5, MaxLat: 39.0}
	g, err := raster.NewGrid(4, 4, e)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	hull := clusterHull(g, []int{0})
	centroid := clusterCentroid(g, []int{0})
	got := hullAreaKm2(hull, centroid.Lat())

	// One cell is 0.625 x 0.5 degrees at ~38.75N, roughly 54x55 km.
	cellWKm := 0.625 * units.KmPerDegreeLon(centroid.Lat())
	cellHKm := 0.5 * units.KmPerDegreeLat
	want := cellWKm * cellHKm
	if math.Abs(got-want) > want*0.01 {
		t.Errorf("expected ~%.1f km2, got %.1f", want, got)
	}
	if got < 2500 || got > 3500 {
		t.Errorf("cell area %.1f km2 outside plausible range", got)
	}
}

func TestClusterCentroid_MeanOfCellCentres(t *testing.T) {
	g, err := raster.NewGrid(2, 2, raster.Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	c := clusterCentroid(g, []int{g.Idx(0, 0), g.Idx(1, 1)})
	if math.Abs(c.Lon()-1.0) > 1e-12 || math.Abs(c.Lat()-1.0) > 1e-12 {
		t.Errorf("expected centroid (1,1), got %v", c)
	}
}

func TestEnclosingRadiusKm_SingleCell(t *testing.T) {
	g, err := raster.NewGrid(2, 2, raster.Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	centroid := clusterCentroid(g, []int{0})
	r := enclosingRadiusKm(g, []int{0}, centroid)

	// Centroid coincides with the single cell centre, so the radius is
	// exactly half the cell diagonal.
	want := units.CellDiagonalKm(1, 1, centroid.Lat()) / 2
	if math.Abs(r-want) > 1e-9 {
		t.Errorf("expected radius %v, got %v", want, r)
	}
	if r <= 0 {
		t.Error("radius must be positive")
	}
}

func TestEnclosingRadiusKm_GrowsWithSpread(t *testing.T) {
	g, err := raster.NewGrid(1, 8, raster.Extent{MinLon: 0, MinLat: 0, MaxLon: 8, MaxLat: 1})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	tight := enclosingRadiusKm(g, []int{0, 1}, clusterCentroid(g, []int{0, 1}))
	wide := enclosingRadiusKm(g, []int{0, 7}, clusterCentroid(g, []int{0, 7}))
	if wide <= tight {
		t.Errorf("wider cluster should have larger radius: tight=%v wide=%v", tight, wide)
	}
}

package raster

import (
	"math"
	"testing"
)

func TestExtent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		extent  Extent
		wantErr bool
	}{
		{"valid", Extent{MinLon: -114, MinLat: 37, MaxLon: -111.5, MaxLat: 39}, false},
		{"inverted lon", Extent{MinLon: -111.5, MinLat: 37, MaxLon: -114, MaxLat: 39}, true},
		{"inverted lat", Extent{MinLon: -114, MinLat: 39, MaxLon: -111.5, MaxLat: 37}, true},
		{"zero width", Extent{MinLon: -114, MinLat: 37, MaxLon: -114, MaxLat: 39}, true},
		{"lat below range", Extent{MinLon: 0, MinLat: -91, MaxLon: 1, MaxLat: 0}, true},
		{"lat above range", Extent{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 91}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.extent.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestExtent_EqualTolerance(t *testing.T) {
	a := Extent{MinLon: -114, MinLat: 37, MaxLon: -111.5, MaxLat: 39}
	b := a
	b.MaxLat += 1e-12
	if !a.Equal(b) {
		t.Error("sub-epsilon difference should compare equal")
	}

	c := a
	c.MaxLat += 1e-6
	if a.Equal(c) {
		t.Error("difference above epsilon should not compare equal")
	}
}

func TestExtent_CellCenterTopDown(t *testing.T) {
	// A 2x2 grid over a 2x2 degree box: cell centres at quarter points,
	// with row 0 in the north.
	e := Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2}

	lon, lat := e.CellCenter(2, 2, 0, 0)
	if lon != 0.5 || lat != 1.5 {
		t.Errorf("cell (0,0): expected (0.5, 1.5), got (%v, %v)", lon, lat)
	}

	lon, lat = e.CellCenter(2, 2, 1, 1)
	if lon != 1.5 || lat != 0.5 {
		t.Errorf("cell (1,1): expected (1.5, 0.5), got (%v, %v)", lon, lat)
	}
}

func TestExtent_CellCorners(t *testing.T) {
	e := Extent{MinLon: 0, MinLat: 0, MaxLon: 4, MaxLat: 2}

	// Cell (0,0) of a 2x4 grid occupies lon [0,1], lat [1,2].
	corners := e.CellCorners(2, 4, 0, 0)
	want := [4][2]float64{{0, 1}, {1, 1}, {1, 2}, {0, 2}}
	for i := range want {
		if math.Abs(corners[i][0]-want[i][0]) > 1e-12 || math.Abs(corners[i][1]-want[i][1]) > 1e-12 {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], corners[i])
		}
	}
}

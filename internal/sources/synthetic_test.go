package sources

import (
	"context"
	"testing"

	"github.com/geopulse-data/geopulse/internal/raster"
)

func TestSyntheticSource_Deterministic(t *testing.T) {
	src := NewSyntheticSource(16, 24, 42)
	region := testRegion()

	first, _, err := src.Load(context.Background(), region)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, _, err := src.Load(context.Background(), region)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	for _, role := range first.Roles() {
		a, b := first[role].Grid, second[role].Grid
		for idx := 0; idx < a.NumCells(); idx++ {
			if a.IsValid(idx) != b.IsValid(idx) {
				t.Fatalf("%s cell %d: validity differs between identical seeds", role, idx)
			}
			if a.IsValid(idx) && a.Value(idx) != b.Value(idx) {
				t.Fatalf("%s cell %d: %v != %v for identical seeds", role, idx, a.Value(idx), b.Value(idx))
			}
		}
	}
}

func TestSyntheticSource_SeedChangesField(t *testing.T) {
	region := testRegion()
	a, _, err := NewSyntheticSource(16, 24, 1).Load(context.Background(), region)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, _, err := NewSyntheticSource(16, 24, 2).Load(context.Background(), region)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ga, gb := a[raster.RoleTemperature].Grid, b[raster.RoleTemperature].Grid
	for idx := 0; idx < ga.NumCells(); idx++ {
		if ga.IsValid(idx) && gb.IsValid(idx) && ga.Value(idx) != gb.Value(idx) {
			return
		}
	}
	t.Error("different seeds produced identical temperature fields")
}

func TestSyntheticSource_ShapeAndRoles(t *testing.T) {
	region := testRegion()
	ls, _, err := NewSyntheticSource(48, 64, 42).Load(context.Background(), region)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(ls) != 3 {
		t.Fatalf("got %d layers, want 3", len(ls))
	}
	for _, role := range ls.Roles() {
		grid := ls[role].Grid
		if grid.Rows != 48 || grid.Cols != 64 {
			t.Errorf("%s: got %dx%d, want 48x64", role, grid.Rows, grid.Cols)
		}
		if !grid.Extent.Equal(region.Extent) {
			t.Errorf("%s: grid extent %s != region extent %s", role, grid.Extent, region.Extent)
		}
	}

	if ls[raster.RoleTemperature].Polarity != raster.Ascending {
		t.Error("temperature should be ascending")
	}
	if ls[raster.RoleVulnerability].Polarity != raster.Ascending {
		t.Error("vulnerability should be ascending")
	}
	if ls[raster.RoleGridAccess].Polarity != raster.Descending {
		t.Error("grid_access should be descending")
	}
}

func TestSyntheticSource_TemperatureHotspots(t *testing.T) {
	src := NewSyntheticSource(48, 64, 42)
	ls, _, err := src.Load(context.Background(), testRegion())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	max, ok := ls[raster.RoleTemperature].Grid.MaxValid()
	if !ok {
		t.Fatal("temperature layer has no valid cells")
	}
	if max <= src.BaseTempC+5 {
		t.Errorf("max temperature %v shows no hot spots above background %v", max, src.BaseTempC)
	}
}

func TestSyntheticSource_VulnerabilityRange(t *testing.T) {
	ls, _, err := NewSyntheticSource(32, 32, 7).Load(context.Background(), testRegion())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, v := range ls[raster.RoleVulnerability].Grid.ValidValues() {
		if v < 0 || v > 100 {
			t.Fatalf("vulnerability value %v outside [0,100]", v)
		}
	}
}

func TestSyntheticSource_GridAccessNonNegative(t *testing.T) {
	ls, _, err := NewSyntheticSource(32, 32, 7).Load(context.Background(), testRegion())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, v := range ls[raster.RoleGridAccess].Grid.ValidValues() {
		if v < 0 {
			t.Fatalf("grid_access distance %v is negative", v)
		}
	}
}

func TestSyntheticSource_DropoutMasksCells(t *testing.T) {
	region := testRegion()

	full := NewSyntheticSource(16, 16, 42)
	full.DropoutRate = 0
	_, prov, err := full.Load(context.Background(), region)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, p := range prov {
		if p.ValidCells != p.Cells {
			t.Errorf("%s: %d/%d valid with dropout disabled", p.Role, p.ValidCells, p.Cells)
		}
	}

	gappy := NewSyntheticSource(16, 16, 42)
	gappy.DropoutRate = 0.5
	_, prov, err = gappy.Load(context.Background(), region)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, p := range prov {
		if p.ValidCells >= p.Cells {
			t.Errorf("%s: no cells masked at 50%% dropout", p.Role)
		}
	}
}

func TestSyntheticSource_Provenance(t *testing.T) {
	_, prov, err := NewSyntheticSource(8, 8, 42).Load(context.Background(), testRegion())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(prov) != 3 {
		t.Fatalf("got %d provenance records, want 3", len(prov))
	}
	for _, p := range prov {
		if p.Source != "synthetic:seed=42" {
			t.Errorf("got source %q, want synthetic:seed=42", p.Source)
		}
		if p.Cells != 64 {
			t.Errorf("%s: got %d cells, want 64", p.Role, p.Cells)
		}
	}
}

func TestSyntheticSource_InvalidDims(t *testing.T) {
	if _, _, err := NewSyntheticSource(0, 16, 42).Load(context.Background(), testRegion()); err == nil {
		t.Error("expected error for zero rows")
	}
}

func TestSyntheticSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewSyntheticSource(8, 8, 42).Load(ctx, testRegion()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

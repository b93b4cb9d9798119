package monitor

import (
	"bytes"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/geopulse-data/geopulse/internal/raster"
)

func TestCompositeXYZ_FlipsRows(t *testing.T) {
	extent := raster.Extent{MinLon: -114, MinLat: 37, MaxLon: -113, MaxLat: 38}
	g, err := raster.NewGrid(2, 3, extent)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	g.SetValue(0, 0, 0.9) // north-west cell
	g.SetValue(1, 2, 0.1) // south-east cell

	xyz := compositeXYZ{g: g}

	cols, rows := xyz.Dims()
	if cols != 3 || rows != 2 {
		t.Fatalf("expected dims (3, 2), got (%d, %d)", cols, rows)
	}

	// Plot row 1 is the top of the image, which is grid row 0.
	if v := xyz.Z(0, 1); v != 0.9 {
		t.Errorf("expected Z(0,1)=0.9, got %f", v)
	}
	if v := xyz.Z(2, 0); v != 0.1 {
		t.Errorf("expected Z(2,0)=0.1, got %f", v)
	}

	// Unset cells surface as NaN so they stay unpainted.
	if v := xyz.Z(1, 0); !math.IsNaN(v) {
		t.Errorf("expected NaN for invalid cell, got %f", v)
	}
}

func TestCompositeXYZ_Axes(t *testing.T) {
	extent := raster.Extent{MinLon: -114, MinLat: 37, MaxLon: -113, MaxLat: 38}
	g, err := raster.NewGrid(2, 2, extent)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	xyz := compositeXYZ{g: g}

	// Column centres run west to east.
	if lon := xyz.X(0); math.Abs(lon-(-113.75)) > 1e-9 {
		t.Errorf("expected X(0)=-113.75, got %f", lon)
	}
	if lon := xyz.X(1); math.Abs(lon-(-113.25)) > 1e-9 {
		t.Errorf("expected X(1)=-113.25, got %f", lon)
	}

	// Row 0 is the bottom of the plot: the southern grid row.
	if lat := xyz.Y(0); math.Abs(lat-37.25) > 1e-9 {
		t.Errorf("expected Y(0)=37.25, got %f", lat)
	}
	if lat := xyz.Y(1); math.Abs(lat-37.75) > 1e-9 {
		t.Errorf("expected Y(1)=37.75, got %f", lat)
	}
}

func TestHandleHeatmapPNG(t *testing.T) {
	c := NewCharts(&fakeResultSource{rr: chartTestRunResult(t)})

	req := httptest.NewRequest(http.MethodGet, "/debug/charts/heatmap.png", nil)
	rec := httptest.NewRecorder()

	c.handleHeatmapPNG(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("got content type %q, want image/png", ct)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a valid PNG: %v", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		t.Errorf("expected non-empty image, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestHandleHeatmapPNG_NoRun(t *testing.T) {
	c := NewCharts(&fakeResultSource{})

	req := httptest.NewRequest(http.MethodGet, "/debug/charts/heatmap.png", nil)
	rec := httptest.NewRecorder()

	c.handleHeatmapPNG(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestWriteHeatmapPNG(t *testing.T) {
	rr := chartTestRunResult(t)
	path := filepath.Join(t.TempDir(), "plots", "heatmap.png")

	if err := WriteHeatmapPNG(rr, path); err != nil {
		t.Fatalf("WriteHeatmapPNG: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read heatmap file: %v", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		t.Errorf("file is not a valid PNG: %v", err)
	}
}

func TestWriteHeatmapPNG_NilResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatmap.png")

	if err := WriteHeatmapPNG(nil, path); err == nil {
		t.Error("expected an error for a nil result")
	}
}

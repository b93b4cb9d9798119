package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/raster"
)

// heatmapColors is the number of palette steps in the PNG heatmap.
const heatmapColors = 12

// compositeXYZ adapts a scored grid to the plotter.GridXYZ interface.
// Plot rows grow northward while grid row 0 is the northern edge, so
// the row axis is flipped. Invalid cells surface as NaN and stay
// unpainted.
type compositeXYZ struct {
	g *raster.Grid
}

func (c compositeXYZ) Dims() (cols, rows int) { return c.g.Cols, c.g.Rows }

func (c compositeXYZ) Z(col, row int) float64 {
	v, ok := c.g.At(c.g.Rows-1-row, col)
	if !ok {
		return math.NaN()
	}
	return v
}

func (c compositeXYZ) X(col int) float64 {
	lon, _ := c.g.Extent.CellCenter(c.g.Rows, c.g.Cols, 0, col)
	return lon
}

func (c compositeXYZ) Y(row int) float64 {
	_, lat := c.g.Extent.CellCenter(c.g.Rows, c.g.Cols, c.g.Rows-1-row, 0)
	return lat
}

// renderHeatmap draws the composite grid as a heat map plot. The colour
// scale is pinned to [0, 1] so images from different runs compare
// directly.
func renderHeatmap(rr *geopulse.RunResult) (*plot.Plot, error) {
	if rr == nil || rr.Composite == nil {
		return nil, fmt.Errorf("no composite grid to plot")
	}

	h := plotter.NewHeatMap(compositeXYZ{g: rr.Composite}, palette.Heat(heatmapColors, 1))
	h.Min = 0
	h.Max = 1

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Composite GPS - %s", rr.Region)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(h)
	return p, nil
}

// handleHeatmapPNG serves the latest composite grid as a rendered PNG.
func (c *Charts) handleHeatmapPNG(w http.ResponseWriter, r *http.Request) {
	rr := c.latest()
	if rr == nil || rr.Composite == nil {
		c.writeJSONError(w, http.StatusNotFound, "no completed run available")
		return
	}

	p, err := renderHeatmap(rr)
	if err != nil {
		c.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build heatmap: %v", err))
		return
	}

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		c.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render heatmap: %v", err))
		return
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		c.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render heatmap: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// WriteHeatmapPNG renders the composite grid to a PNG file, creating
// parent directories as needed. The offline tools use it to drop a
// quick-look image next to the GeoJSON artifact.
func WriteHeatmapPNG(rr *geopulse.RunResult, path string) error {
	p, err := renderHeatmap(rr)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}

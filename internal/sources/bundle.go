package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
)

// DefaultNoData is the sentinel written for invalid cells when a layer
// set is exported to a bundle. JSON cannot carry NaN, so exports need a
// finite stand-in.
const DefaultNoData = -9999.0

// maxBundleBytes caps how much bundle JSON a source will read. A
// 1000x1000 three-layer bundle is around 60MB of JSON, so this leaves
// headroom without letting a bad file or URL stream forever.
const maxBundleBytes = 256 * 1024 * 1024

// Bundle is the interchange format for a set of co-registered layers:
// one extent, one grid shape, row-major values per layer. gen-layers
// writes it; BundleSource and RemoteSource read it.
type Bundle struct {
	Region      string        `json:"region,omitempty"`
	Extent      raster.Extent `json:"extent"`
	Rows        int           `json:"rows"`
	Cols        int           `json:"cols"`
	GeneratedAt string        `json:"generated_at,omitempty"`
	Seed        *int64        `json:"seed,omitempty"`
	Layers      []BundleLayer `json:"layers"`
}

// BundleLayer is one raster in a bundle. Values are row-major with row
// 0 at the northern edge; cells equal to the nodata sentinel hold no
// data. An omitted polarity means ascending.
type BundleLayer struct {
	Role     string    `json:"role"`
	Polarity string    `json:"polarity,omitempty"`
	Units    string    `json:"units,omitempty"`
	NoData   *float64  `json:"nodata,omitempty"`
	Values   []float64 `json:"values"`
}

// ParseBundle decodes bundle JSON and checks its structure: positive
// grid shape, a well-formed extent, and one full grid of values per
// layer. Semantic checks against the requested region happen when the
// layer set is built.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle JSON: %w", err)
	}
	if b.Rows < 1 || b.Cols < 1 {
		return nil, fmt.Errorf("bundle grid must have positive dimensions, got %dx%d", b.Rows, b.Cols)
	}
	if err := b.Extent.Validate(); err != nil {
		return nil, fmt.Errorf("bundle extent: %w", err)
	}
	if len(b.Layers) == 0 {
		return nil, fmt.Errorf("bundle has no layers")
	}
	want := b.Rows * b.Cols
	for _, layer := range b.Layers {
		if len(layer.Values) != want {
			return nil, fmt.Errorf("layer %q has %d values, want %d for a %dx%d grid",
				layer.Role, len(layer.Values), want, b.Rows, b.Cols)
		}
	}
	return &b, nil
}

// Marshal renders the bundle as indented JSON.
func (b *Bundle) Marshal() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// layerSet builds the validated raster layers for a parsed bundle.
// Co-registration with the requested region comes first: a bundle
// exported for a different extent must never score under this region's
// name, so the mismatch is a fatal configuration fault.
func (b *Bundle) layerSet(region config.Region) (raster.LayerSet, error) {
	if !b.Extent.Equal(region.Extent) {
		return nil, scoring.NewConfigurationError("source",
			"bundle extent %s does not match region %q extent %s",
			b.Extent, region.Name, region.Extent)
	}

	ls := make(raster.LayerSet, len(b.Layers))
	for _, bl := range b.Layers {
		role, err := raster.ParseRole(bl.Role)
		if err != nil {
			return nil, scoring.NewConfigurationError("source", "%s", err)
		}
		if _, exists := ls[role]; exists {
			return nil, scoring.NewConfigurationError("source", "bundle contains layer %q twice", role)
		}
		polarity, err := raster.ParsePolarity(bl.Polarity)
		if err != nil {
			return nil, scoring.NewConfigurationError("source", "layer %q: %s", role, err)
		}
		grid, err := raster.NewGrid(b.Rows, b.Cols, b.Extent)
		if err != nil {
			return nil, err
		}
		for row := 0; row < b.Rows; row++ {
			for col := 0; col < b.Cols; col++ {
				v := bl.Values[row*b.Cols+col]
				if isNoData(v, bl.NoData) {
					grid.SetInvalid(row, col)
					continue
				}
				grid.SetValue(row, col, v)
			}
		}
		ls[role] = &raster.Layer{Role: role, Polarity: polarity, Grid: grid}
	}

	if err := ls.Validate(); err != nil {
		return nil, scoring.NewConfigurationError("source", "%s", err)
	}
	return ls, nil
}

func isNoData(v float64, sentinel *float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	return sentinel != nil && v == *sentinel
}

// BundleFromLayers exports a layer set to the bundle interchange
// format. Invalid cells become the DefaultNoData sentinel, so a round
// trip preserves validity masks.
func BundleFromLayers(regionName string, ls raster.LayerSet) (*Bundle, error) {
	if err := ls.Validate(); err != nil {
		return nil, err
	}

	roles := ls.Roles()
	ref := ls[roles[0]].Grid
	nodata := DefaultNoData
	b := &Bundle{
		Region: regionName,
		Extent: ref.Extent,
		Rows:   ref.Rows,
		Cols:   ref.Cols,
		Layers: make([]BundleLayer, 0, len(roles)),
	}
	for _, role := range roles {
		grid := ls[role].Grid
		values := make([]float64, grid.NumCells())
		for i := range values {
			if grid.IsValid(i) {
				values[i] = grid.Value(i)
			} else {
				values[i] = nodata
			}
		}
		b.Layers = append(b.Layers, BundleLayer{
			Role:     string(role),
			Polarity: ls[role].Polarity.String(),
			NoData:   &nodata,
			Values:   values,
		})
	}
	return b, nil
}

// BundleSource loads layers from a bundle JSON file on disk.
type BundleSource struct {
	Path string
}

// NewBundleSource creates a source reading the given bundle file.
func NewBundleSource(path string) *BundleSource {
	return &BundleSource{Path: path}
}

// Load reads the bundle file and validates it against the requested
// region.
func (s *BundleSource) Load(ctx context.Context, region config.Region) (raster.LayerSet, []LayerProvenance, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cleanPath := filepath.Clean(s.Path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, nil, fmt.Errorf("bundle file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat bundle file: %w", err)
	}
	if info.Size() > maxBundleBytes {
		return nil, nil, fmt.Errorf("bundle file too large: %d bytes (max %d)", info.Size(), maxBundleBytes)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read bundle file: %w", err)
	}

	bundle, err := ParseBundle(data)
	if err != nil {
		return nil, nil, err
	}
	ls, err := bundle.layerSet(region)
	if err != nil {
		return nil, nil, err
	}
	return ls, Provenance(ls, "bundle:"+cleanPath), nil
}

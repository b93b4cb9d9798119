package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopulse-data/geopulse/internal/raster"
)

func testExtent() raster.Extent {
	return raster.Extent{MinLon: -114.0, MinLat: 37.0, MaxLon: -111.5, MaxLat: 39.0}
}

// fillLayer builds a rows x cols layer from values in row-major order.
// NaN entries become invalid cells.
func fillLayer(t *testing.T, role raster.LayerRole, polarity raster.Polarity, rows, cols int, values []float64) *raster.Layer {
	t.Helper()
	require.Len(t, values, rows*cols)
	g, err := raster.NewGrid(rows, cols, testExtent())
	require.NoError(t, err)
	for i, v := range values {
		row, col := g.RowCol(i)
		g.SetValue(row, col, v)
	}
	return &raster.Layer{Role: role, Polarity: polarity, Grid: g}
}

func minMaxParams() NormalizeParams {
	return NormalizeParams{Mode: ModeMinMax}
}

func TestNormalize_MinMaxKnownValues(t *testing.T) {
	t.Parallel()
	layer := fillLayer(t, raster.RoleTemperature, raster.Ascending, 1, 3, []float64{10, 20, 30})

	out, err := Normalize(layer, minMaxParams())
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.Value(0))
	assert.Equal(t, 0.5, out.Value(1))
	assert.Equal(t, 1.0, out.Value(2))
}

func TestNormalize_ConstantLayerMapsToHalf(t *testing.T) {
	t.Parallel()
	layer := fillLayer(t, raster.RoleTemperature, raster.Ascending, 2, 2, []float64{7, 7, 7, 7})

	out, err := Normalize(layer, minMaxParams())
	require.NoError(t, err)

	for idx := 0; idx < out.NumCells(); idx++ {
		assert.Equal(t, 0.5, out.Value(idx), "cell %d", idx)
	}
}

func TestNormalize_DescendingInvertsScale(t *testing.T) {
	t.Parallel()
	layer := fillLayer(t, raster.RoleVulnerability, raster.Descending, 1, 3, []float64{10, 20, 30})

	out, err := Normalize(layer, minMaxParams())
	require.NoError(t, err)

	// Lowest raw value is most suitable under descending polarity.
	assert.Equal(t, 1.0, out.Value(0))
	assert.Equal(t, 0.5, out.Value(1))
	assert.Equal(t, 0.0, out.Value(2))
}

func TestNormalize_InvalidCellsExcludedAndPreserved(t *testing.T) {
	t.Parallel()
	g, err := raster.NewGrid(1, 4, testExtent())
	require.NoError(t, err)
	g.SetValue(0, 0, 10)
	g.SetValue(0, 1, 30)
	// (0,2) is never written and stays invalid.
	g.SetValue(0, 3, 20)
	layer := &raster.Layer{Role: raster.RoleTemperature, Polarity: raster.Ascending, Grid: g}

	out, err := Normalize(layer, minMaxParams())
	require.NoError(t, err)

	assert.False(t, out.IsValid(2), "invalid cell must stay invalid")
	assert.Equal(t, 0.0, out.Value(0))
	assert.Equal(t, 1.0, out.Value(1))
	assert.Equal(t, 0.5, out.Value(3))
}

func TestNormalize_PercentileClipsOutlier(t *testing.T) {
	t.Parallel()
	// 99 ordinary values plus one extreme outlier. Under plain min-max
	// the outlier compresses everything else toward zero; percentile
	// clipping keeps the bulk of the distribution spread over [0,1].
	values := make([]float64, 100)
	for i := 0; i < 99; i++ {
		values[i] = float64(i)
	}
	values[99] = 1e6
	layer := fillLayer(t, raster.RoleTemperature, raster.Ascending, 10, 10, values)

	out, err := Normalize(layer, NormalizeParams{Mode: ModePercentile, LowPct: 2, HighPct: 98})
	require.NoError(t, err)

	// The outlier clamps to the top of the scale instead of defining it.
	assert.Equal(t, 1.0, out.Value(99))
	// Mid-range values stay spread out rather than being crushed to ~0.
	assert.Greater(t, out.Value(50), 0.3)
	assert.Less(t, out.Value(50), 0.7)

	for idx := 0; idx < out.NumCells(); idx++ {
		v := out.Value(idx)
		assert.GreaterOrEqual(t, v, 0.0, "cell %d", idx)
		assert.LessOrEqual(t, v, 1.0, "cell %d", idx)
	}
}

func TestNormalize_EmptyLayer(t *testing.T) {
	t.Parallel()
	g, err := raster.NewGrid(2, 2, testExtent())
	require.NoError(t, err)
	layer := &raster.Layer{Role: raster.RoleGridAccess, Polarity: raster.Ascending, Grid: g}

	_, err = Normalize(layer, minMaxParams())
	require.Error(t, err)

	var emptyErr *EmptyLayerError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, raster.RoleGridAccess, emptyErr.Role)
}

func TestNormalize_BadPercentileBounds(t *testing.T) {
	t.Parallel()
	layer := fillLayer(t, raster.RoleTemperature, raster.Ascending, 1, 2, []float64{1, 2})

	cases := []NormalizeParams{
		{Mode: ModePercentile, LowPct: 98, HighPct: 2},
		{Mode: ModePercentile, LowPct: 50, HighPct: 50},
		{Mode: ModePercentile, LowPct: -1, HighPct: 98},
		{Mode: ModePercentile, LowPct: 2, HighPct: 101},
		{Mode: "median"},
	}
	for _, params := range cases {
		_, err := Normalize(layer, params)
		require.Error(t, err, "params %+v", params)

		var cfgErr *ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), "params %+v", params)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePercentile, mode)

	mode, err = ParseMode("MinMax")
	require.NoError(t, err)
	assert.Equal(t, ModeMinMax, mode)

	_, err = ParseMode("zscore")
	assert.Error(t, err)
}

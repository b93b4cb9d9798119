package scoring

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/geopulse-data/geopulse/internal/raster"
)

// Mode selects how a layer's raw values are rescaled onto [0,1].
type Mode string

const (
	// ModeMinMax rescales against the full min/max of valid cells.
	ModeMinMax Mode = "minmax"
	// ModePercentile clips to configurable low/high percentiles before
	// the min-max map, so a single outlier pixel cannot distort the
	// whole scale.
	ModePercentile Mode = "percentile"
)

// ParseMode validates a normalization mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.TrimSpace(strings.ToLower(s))) {
	case ModeMinMax:
		return ModeMinMax, nil
	case ModePercentile, "":
		return ModePercentile, nil
	default:
		return "", NewConfigurationError("normalize", "unknown normalization mode %q (valid: minmax, percentile)", s)
	}
}

// NormalizeParams configures normalization for one layer. Percentile
// bounds are in percent (0-100) and only consulted for ModePercentile.
type NormalizeParams struct {
	Mode    Mode    `json:"mode"`
	LowPct  float64 `json:"percentile_low"`
	HighPct float64 `json:"percentile_high"`
}

// Validate rejects out-of-range or inverted percentile bounds.
func (p NormalizeParams) Validate() error {
	if p.Mode != ModeMinMax && p.Mode != ModePercentile {
		return NewConfigurationError("normalize", "unknown normalization mode %q", string(p.Mode))
	}
	if p.Mode == ModePercentile {
		if p.LowPct < 0 || p.HighPct > 100 {
			return NewConfigurationError("normalize", "percentile bounds [%g, %g] outside [0, 100]", p.LowPct, p.HighPct)
		}
		if p.LowPct >= p.HighPct {
			return NewConfigurationError("normalize", "low percentile %g must be below high percentile %g", p.LowPct, p.HighPct)
		}
	}
	return nil
}

// Normalize rescales one layer onto the unitless [0,1] suitability
// scale. Every valid output cell lands in [0,1]; invalid cells pass
// through untouched and never influence the scale. A constant layer
// maps every valid cell to 0.5 rather than dividing by zero. Descending
// polarity inverts the result so 1 always means "most suitable".
//
// Returns EmptyLayerError if the layer has zero valid cells.
func Normalize(layer *raster.Layer, p NormalizeParams) (*raster.Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	values := layer.Grid.ValidValues()
	if len(values) == 0 {
		return nil, &EmptyLayerError{Role: layer.Role}
	}

	lo, hi := bounds(values, p)

	out := layer.Grid.Clone()
	span := hi - lo
	for idx := 0; idx < out.NumCells(); idx++ {
		if !out.IsValid(idx) {
			continue
		}
		var n float64
		if span == 0 {
			// Degenerate scale: constant layer, or percentile clipping
			// collapsed the range. Every valid cell is equally suitable.
			n = 0.5
		} else {
			v := clamp(out.Value(idx), lo, hi)
			n = (v - lo) / span
		}
		if layer.Polarity == raster.Descending {
			n = 1 - n
		}
		row, col := out.RowCol(idx)
		out.SetValue(row, col, n)
	}
	return out, nil
}

// bounds computes the normalization scale for the chosen mode.
func bounds(values []float64, p NormalizeParams) (lo, hi float64) {
	switch p.Mode {
	case ModePercentile:
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		lo = stat.Quantile(p.LowPct/100, stat.Empirical, sorted, nil)
		hi = stat.Quantile(p.HighPct/100, stat.Empirical, sorted, nil)
		return lo, hi
	default:
		lo, hi = values[0], values[0]
		for _, v := range values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return lo, hi
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package scoring

import (
	"github.com/geopulse-data/geopulse/internal/raster"
)

// WeightSpec maps layer roles to their non-negative weights in the
// composite. Weights need not sum to 1: the compositor divides by the
// sum of weights actually contributing at each cell.
type WeightSpec map[raster.LayerRole]float64

// DefaultWeights mirrors the weighting the scoring model was tuned
// with: temperature 0.5, grid access 0.3, vulnerability 0.2.
func DefaultWeights() WeightSpec {
	return WeightSpec{
		raster.RoleTemperature:   0.5,
		raster.RoleGridAccess:    0.3,
		raster.RoleVulnerability: 0.2,
	}
}

// Validate rejects negative weights, unknown roles, and the all-zero
// spec (with every weight zero the composite is undefined).
func (w WeightSpec) Validate() error {
	if len(w) == 0 {
		return NewConfigurationError("weights", "no layer weights configured")
	}
	anyPositive := false
	for role, weight := range w {
		if _, err := raster.ParseRole(string(role)); err != nil {
			return NewConfigurationError("weights", "%v", err)
		}
		if weight < 0 {
			return NewConfigurationError("weights", "weight for layer %q is negative (%g)", role, weight)
		}
		if weight > 0 {
			anyPositive = true
		}
	}
	if !anyPositive {
		return NewConfigurationError("weights", "all layer weights are zero")
	}
	return nil
}

// Positive returns the subset of roles with strictly positive weight.
// Zero-weighted layers are excluded from compositing entirely.
func (w WeightSpec) Positive() WeightSpec {
	out := make(WeightSpec, len(w))
	for role, weight := range w {
		if weight > 0 {
			out[role] = weight
		}
	}
	return out
}

package scoring

import (
	"fmt"

	"github.com/geopulse-data/geopulse/internal/raster"
)

// ConfigurationError is a fatal precondition fault detected before any
// scoring proceeds: mismatched grid shapes, missing layers, all-zero
// weights, bad percentile bounds, and the like. The run aborts with no
// partial result; the fault is deterministic so nothing retries it.
type ConfigurationError struct {
	Stage  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Stage, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the given stage.
func NewConfigurationError(stage, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// EmptyLayerError reports a layer with zero valid cells. Normalization
// has no scale to work with, so the run is fatal for that configuration.
type EmptyLayerError struct {
	Role raster.LayerRole
}

func (e *EmptyLayerError) Error() string {
	return fmt.Sprintf("layer %q has no valid cells", e.Role)
}

// NoValidLayersError reports a composite in which no cell anywhere
// received a contribution from any positively-weighted layer; the input
// extents or weights do not overlap the data.
type NoValidLayersError struct{}

func (e *NoValidLayersError) Error() string {
	return "no valid layers contributed to the composite grid"
}

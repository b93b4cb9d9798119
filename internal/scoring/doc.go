// Package scoring owns the algorithmic heart of the pipeline: layer
// normalization onto the common [0,1] suitability scale and the weighted
// composite that produces the Geothermal Potential Score grid.
//
// Key operations: Normalize, Composite. Key types: NormalizeParams,
// WeightSpec, and the run-fatal error taxonomy (ConfigurationError,
// EmptyLayerError, NoValidLayersError).
package scoring

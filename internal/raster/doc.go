// Package raster owns the grid layer of the scoring data model.
//
// Responsibilities: dense row-major grids with validity masks, WGS84
// extents, and the closed set of layer roles a run may carry.
// Key types: Grid, Extent, Layer, LayerSet.
//
// Dependency rule: raster depends on nothing above it. No scoring,
// extraction, or database code is allowed in this package.
package raster

// Package geopulse orchestrates the scoring pipeline: resolving run
// parameters, driving the normalize-composite-extract stages over a
// layer source, and persisting run results. Everything a run consumes
// is fixed in its RunConfig up front, so concurrent runs never share
// mutable state.
package geopulse

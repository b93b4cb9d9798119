// Package sites turns a composite score grid into ranked candidate
// sites: threshold selection, 8-connectivity clustering, minimum-size
// filtering, representative geometry and score, and deterministic
// ordering.
//
// Clustering is an iterative flood fill over flat cell indices (explicit
// queue, no recursion) so grid size never threatens stack depth.
package sites

// Package ensemble coordinates whole-ensemble operations over parameter
// nodes: allocation of one node per member, parallel member-file I/O,
// gather/scatter against the shared assimilation matrix, elementwise
// ensemble mean, bound enforcement, and per-segment spread statistics.
//
// The ensemble never implements the update equations; it is the data
// conduit they operate on.
package ensemble

// Package stage implements the six per-shot pipeline steps: prompt
// authoring, prompt inspection, and media generation, each for the stills
// and video tracks.
//
// A Handler never mutates the board. Execute receives a private copy of one
// shot, performs its provider calls and file writes, and returns an Outcome
// whose Apply closure the batch scheduler later runs against the shot on the
// shared board. Failed and skipped outcomes carry no closure, so a failed shot
// keeps its prior state.
//
// Files touched by a worker (prompt files, versioned assets, flat copies) are
// all keyed by the shot id, so concurrent workers never share a path.
package stage

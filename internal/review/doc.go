// Package review is the human gate between generation and the next step.
//
// Approving a still unlocks its video track; approving a video marks the shot
// finished. Rejections record the reviewer's notes as inspector feedback so
// the next authoring or patch pass can act on them. The failure helpers
// bundle rejected shots into folders and a single text report for offline
// analysis.
package review

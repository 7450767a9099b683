// Package logging assembles the slog loggers used by shotline.
//
// It owns the console and JSON handlers, mirrors records into the log file,
// and exposes context helpers so stage workers tag every line with the shot,
// stage, track, and batch they belong to.
package logging

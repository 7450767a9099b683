// Package logs reads back the JSON log file written next to every run.
//
// Tail returns the last lines of the file together with the byte offset to
// resume from, and Follow polls from that offset until the context ends.
// Entries decode the slog JSON records so the CLI can filter by shot, stage,
// batch, or level without loading the whole file.
package logs

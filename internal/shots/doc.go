// Package shots owns the shot board: the ordered JSON document recording
// every shot's brief, constraints, and per-track (stills, video) progress.
//
// Load rejects documents with unknown statuses, empty or duplicate ids, or
// malformed members with a StoreCorruptError. Save writes atomically and
// preserves member order along with any fields this package does not model.
// AcquireLock serializes writers across processes.
package shots

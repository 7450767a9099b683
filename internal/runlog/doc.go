// Package runlog keeps the history of batch runs in SQLite.
//
// Every non-empty batch is recorded with its counts and one row per selected
// shot, so `shotline history` and the HTTP API can answer "what happened to
// SHOT_014 last night" without parsing log files. The shot board stays the
// single source of truth for shot state; the run log is an append-only audit
// trail that may be deleted at any time.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package runlog

// Package generation is the adapter between pipeline stages and the
// text/media providers. It normalizes request payloads, routes uploads to the
// configured backend, and binds reference assets once per run.
package generation

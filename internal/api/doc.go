// Package api serves the local HTTP surface for shotline: board status,
// shot listings, stage runs, review decisions, and batch history.
//
// # Routes
//
//	GET  /api/health
//	GET  /api/status
//	GET  /api/shots                  ?track=stills&status=IMAGE_READY
//	GET  /api/shots/{id}
//	POST /api/shots/{id}/review      {"track","decision","notes"}
//	POST /api/stages/{stage}/run     {"range","force","clean","workers","timeoutSeconds"}
//	GET  /api/history                ?stage=stills_generate&limit=20
//	GET  /api/history/{id}
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Track statuses and stage names are exposed
// verbatim. Timestamps use RFC3339 with milliseconds. Stage runs go through
// the same batch scheduler as the CLI, so the board lock serializes them
// against any concurrent CLI process. Review decisions take the lock too.
package api

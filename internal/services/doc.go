// Package services defines shared utilities consumed by the pipeline stages
// and the external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp shot IDs, stage names, tracks, batch IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers, the Wrap helper, and ProviderError, which
//     together classify failures as store corruption, provider failures,
//     timeouts, or missing inputs.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services

// Package retry wraps a single external call in a bounded exponential-backoff
// policy.
//
// Policies are built once from configuration and shared by every provider
// client. Do runs the call, classifies each failure (HTTP 408/429/5xx,
// transport errors, per-attempt timeouts), honours Retry-After hints, and
// returns a *services.ProviderError carrying the last cause once the attempt
// budget is spent. Local failures such as missing inputs are returned as-is
// without retrying.
package retry

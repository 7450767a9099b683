// Package llm provides an OpenRouter-compatible chat client used to author,
// inspect, and rewrite shot prompts.
//
// NewClient builds a client from Config. CompleteText sends a system and user
// prompt and returns the text of the first choice. HealthCheck verifies the
// API key and model respond.
//
// Every request runs through a retry.Policy: HTTP 408/429/5xx, transport
// errors, and empty completions are retried with exponential backoff, and
// Retry-After is honored. The final failure is a *services.ProviderError.
package llm

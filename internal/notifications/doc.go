// Package notifications pushes batch and review events to ntfy.
//
// The ntfy endpoint and per-category switches come from the [notifications]
// section of config.toml. With no topic configured the service is a no-op, so
// callers never need to check whether notifications are enabled.
package notifications

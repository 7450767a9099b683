// Package config loads, normalizes, and validates shotline configuration data.
//
// It supplies repository defaults, reads a project .env file, expands user
// paths (including tilde shortcuts), resolves project-relative paths against
// paths.project_dir, decodes TOML files, and honours environment fallbacks
// such as OPENROUTER_API_KEY and FAL_KEY.
//
// The resulting Config is loaded once per process and passed explicitly to
// every component constructor.
package config

// Package config loads, normalizes, and validates farsisub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DEEPSEEK_API_KEY and MAX_SECONDS_PER_DAY. The Config type centralizes every
// knob the daemon and CLI need, so data directories, collaborator binaries,
// and translation credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

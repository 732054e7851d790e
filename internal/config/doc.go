// Package config loads, normalizes, and validates stereowatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads the TOML file from ~/.config/stereowatch/config.toml
// or an explicit path. The Config type centralizes every knob the daemon and
// CLI need: poll timing, debounce count, probe timeouts, notification topics,
// and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config

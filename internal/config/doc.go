// Package config loads redub's TOML configuration.
//
// A config file is optional: Default supplies every value, the file overrides
// them, and a small set of environment variables override secrets and
// endpoints last. Load always returns a normalized, validated config.
package config

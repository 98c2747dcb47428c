// Package config loads, normalizes, and validates the TOML
// configuration shared by the daemon and CLI.
package config

// Package config loads, validates, and normalizes scribe's TOML
// configuration. Defaults live in defaults.go and the embedded sample config
// documents every key.
package config

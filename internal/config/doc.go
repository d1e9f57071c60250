// Package config loads, normalizes, and validates versecast configuration.
//
// Configuration comes from a TOML file (~/.config/versecast/config.toml or a
// versecast.toml in the working directory), layered over repository defaults.
// All paths are expanded and made absolute during normalization, and the
// whole document is validated before any subsystem sees it.
package config

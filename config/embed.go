// Package config provides embedded default configuration for the Scrabble client.
package config

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration in YAML format.
// It is written to settings.yaml the first time the client starts.
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte

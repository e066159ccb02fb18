// Package defaults provides embedded copies of the default configuration
// and persona files for the steward init subcommand.
package defaults

import _ "embed"

// ConfigYAML is the starter configuration file.
//
//go:embed config.example.yaml
var ConfigYAML []byte

// PersonaMD is the starter persona file.
//
//go:embed persona.example.md
var PersonaMD []byte

// Package defaults provides embedded copies of the example config and
// the starter knowledge documents for use by the init subcommand.
package defaults

import "embed"

// ConfigYAML is the example configuration file.
//
//go:embed config.example.yaml
var ConfigYAML []byte

// KnowledgeDocs holds the starter reference documents installed into a
// fresh knowledge directory.
//
//go:embed docs
var KnowledgeDocs embed.FS

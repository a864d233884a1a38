// Package domain contains core domain types for the splitkit engine.
package domain

import (
	"encoding/json"
)

// FeatureFlag is a named runtime toggle resolved from remote config or
// caller-supplied defaults.
type FeatureFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	// Variant is set when the flag is multi-valued, empty otherwise.
	Variant string `json:"variant,omitempty"`
	// Targeting is opaque targeting metadata passed through from remote
	// config. It is not evaluated locally.
	Targeting json.RawMessage `json:"targeting,omitempty"`
}

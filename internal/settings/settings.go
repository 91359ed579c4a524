// Package settings holds the dashboard's persisted user settings: system
// specs, thresholds, utility rates, and location. The agent pipeline only
// reads them; the dashboard UI writes them through Save.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted user configuration for one installation.
// All fields are optional: calculators degrade to documented defaults and
// the context assembler omits what is missing.
type Settings struct {
	// System specs.
	SquareFeet float64 `yaml:"square_feet,omitempty" json:"squareFeet,omitempty"`
	Capacity   float64 `yaml:"capacity,omitempty" json:"capacity,omitempty"` // kBTU/hr nominal
	HSPF2      float64 `yaml:"hspf2,omitempty" json:"hspf2,omitempty"`
	SEER2      float64 `yaml:"seer2,omitempty" json:"seer2,omitempty"`
	SystemType string  `yaml:"system_type,omitempty" json:"systemType,omitempty"` // e.g. "heat pump", "dual fuel"

	// Envelope model inputs.
	InsulationLevel float64 `yaml:"insulation_level,omitempty" json:"insulationLevel,omitempty"`
	HomeShape       float64 `yaml:"home_shape,omitempty" json:"homeShape,omitempty"`
	CeilingHeight   float64 `yaml:"ceiling_height,omitempty" json:"ceilingHeight,omitempty"`

	// Utility rates.
	ElectricRate float64 `yaml:"electric_rate,omitempty" json:"electricRate,omitempty"` // $/kWh

	// Control thresholds. These affect every answer, so the assembler
	// always includes them when present.
	Thresholds *Thresholds `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`

	// Location.
	Location *Location `yaml:"location,omitempty" json:"location,omitempty"`

	// PreferredModel is the user's stored completion-model preference.
	PreferredModel string `yaml:"preferred_model,omitempty" json:"preferredModel,omitempty"`
}

// Thresholds are the thermostat's control parameters.
type Thresholds struct {
	HeatDifferential  float64 `yaml:"heat_differential,omitempty" json:"heatDifferential,omitempty"` // °F
	CoolDifferential  float64 `yaml:"cool_differential,omitempty" json:"coolDifferential,omitempty"` // °F
	MinRunMinutes     int     `yaml:"min_run_minutes,omitempty" json:"minRunMinutes,omitempty"`
	MinOffMinutes     int     `yaml:"min_off_minutes,omitempty" json:"minOffMinutes,omitempty"`
	CompressorLockout float64 `yaml:"compressor_lockout,omitempty" json:"compressorLockout,omitempty"` // °F
	AuxLockout        float64 `yaml:"aux_lockout,omitempty" json:"auxLockout,omitempty"`               // °F
}

// Location identifies where the system is installed. Any subset of fields
// may be present: a geocoded install has city/state plus coordinates, a
// GPS-only install has coordinates, and some imports carry elevation only.
type Location struct {
	City      string  `yaml:"city,omitempty" json:"city,omitempty"`
	State     string  `yaml:"state,omitempty" json:"state,omitempty"`
	Latitude  float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Elevation float64 `yaml:"elevation,omitempty" json:"elevation,omitempty"` // feet
}

// HasCoordinates reports whether a usable lat/lon pair is present.
func (l *Location) HasCoordinates() bool {
	return l != nil && (l.Latitude != 0 || l.Longitude != 0)
}

// HasCityState reports whether a human-readable place name is present.
func (l *Location) HasCityState() bool {
	return l != nil && l.City != "" && l.State != ""
}

// Store loads and saves settings from a YAML file.
type Store struct {
	path string
}

// NewStore creates a settings store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads settings from disk. A missing file is not an error: it
// returns empty settings, matching a fresh install.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &cfg, nil
}

// Save writes settings to disk, creating parent directories as needed.
func (s *Store) Save(cfg *Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

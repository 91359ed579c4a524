// Package config handles Joule configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/joule/config.yaml, /etc/joule/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "joule", "config.yaml"))
	}

	paths = append(paths, "/etc/joule/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Joule configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Completion CompletionConfig `yaml:"completion"`
	Weather    WeatherConfig    `yaml:"weather"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	DataDir    string           `yaml:"data_dir"`
	Settings   string           `yaml:"settings_file"`
	LogLevel   string           `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// CompletionConfig defines the completion endpoint settings.
type CompletionConfig struct {
	// BaseURL of the OpenAI-compatible completions endpoint.
	BaseURL string `yaml:"base_url"`
	// APIKey is the bearer token. Supports ${ENV_VAR} expansion.
	APIKey string `yaml:"api_key"`
	// DefaultModel is used when neither the caller nor the stored user
	// preference names a model.
	DefaultModel string `yaml:"default_model"`
	// FallbackModels is the ordered ladder tried after a rate limit.
	FallbackModels []string `yaml:"fallback_models"`
	// TimeoutSec caps a single completion request (default 30).
	TimeoutSec int `yaml:"timeout_sec"`
	// ProbeTTLMin is how long a resolved best-model probe stays cached
	// (default 10 minutes).
	ProbeTTLMin int `yaml:"probe_ttl_min"`
}

// Timeout returns the completion request timeout as a duration.
func (c CompletionConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// ProbeTTL returns the best-model probe cache window as a duration.
func (c CompletionConfig) ProbeTTL() time.Duration {
	if c.ProbeTTLMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.ProbeTTLMin) * time.Minute
}

// WeatherConfig defines the outdoor temperature lookup settings.
type WeatherConfig struct {
	// BaseURL of the forecast service. Empty disables live lookups.
	BaseURL string `yaml:"base_url"`
	// TimeoutSec bounds the best-effort lookup (default 5).
	TimeoutSec int `yaml:"timeout_sec"`
}

// KnowledgeConfig defines the local reference-document store.
type KnowledgeConfig struct {
	// DocsDir is a directory of markdown reference documents. Empty
	// disables knowledge retrieval.
	DocsDir string `yaml:"docs_dir"`
}

// TelemetryConfig defines the thermostat bridge WebSocket feed.
type TelemetryConfig struct {
	// URL of the bridge's state WebSocket. Empty disables live data.
	URL string `yaml:"url"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Completion: CompletionConfig{
			BaseURL:      "https://api.groq.com/openai/v1",
			DefaultModel: "llama-3.3-70b-versatile",
			FallbackModels: []string{
				"llama-3.1-8b-instant",
				"llama-3.2-3b-preview",
			},
			TimeoutSec:  30,
			ProbeTTLMin: 10,
		},
		Weather: WeatherConfig{
			BaseURL:    "https://api.open-meteo.com/v1",
			TimeoutSec: 5,
		},
	}
}

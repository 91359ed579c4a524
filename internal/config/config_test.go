package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
listen:
  port: 9090
completion:
  api_key: "${JOULE_TEST_KEY}"
  default_model: llama-3.3-70b-versatile
  fallback_models:
    - llama-3.1-8b-instant
  timeout_sec: 15
knowledge:
  docs_dir: /var/lib/joule/docs
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JOULE_TEST_KEY", "gsk_test123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Completion.APIKey != "gsk_test123" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Completion.APIKey)
	}
	if cfg.Completion.Timeout() != 15*time.Second {
		t.Errorf("Timeout() = %v, want 15s", cfg.Completion.Timeout())
	}
	if cfg.Knowledge.DocsDir != "/var/lib/joule/docs" {
		t.Errorf("DocsDir = %q", cfg.Knowledge.DocsDir)
	}
	// Defaults survive a partial file.
	if cfg.Completion.BaseURL == "" {
		t.Error("BaseURL default was lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCompletionDefaults(t *testing.T) {
	var c CompletionConfig
	if c.Timeout() != 30*time.Second {
		t.Errorf("zero TimeoutSec should default to 30s, got %v", c.Timeout())
	}
	if c.ProbeTTL() != 10*time.Minute {
		t.Errorf("zero ProbeTTLMin should default to 10m, got %v", c.ProbeTTL())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" debug ", slog.LevelDebug, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"gopkg.in/yaml.v3"
)

// clearUmask sets the process umask to 0 so file permission assertions are
// deterministic. It restores the original umask when the test completes.
func clearUmask(t *testing.T) {
	t.Helper()
	old := syscall.Umask(0)
	t.Cleanup(func() { syscall.Umask(old) })
}

func TestRunInit_FreshDirectory(t *testing.T) {
	clearUmask(t)
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	for _, sub := range []string{"data", "docs"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil {
			t.Errorf("expected directory %s: %v", sub, err)
		} else if !info.IsDir() {
			t.Errorf("%s is not a directory", sub)
		}
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfgInfo, err := os.Stat(cfgPath)
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	if got := cfgInfo.Mode().Perm(); got != 0o600 {
		t.Errorf("config.yaml permissions = %o, want 0600", got)
	}

	// The example config must be valid YAML.
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("example config is not valid YAML: %v", err)
	}
	for _, key := range []string{"listen", "completion", "weather", "knowledge"} {
		if _, ok := cfg[key]; !ok {
			t.Errorf("example config missing %q section", key)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, "docs"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("expected at least one knowledge doc to be installed")
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".md" {
			t.Errorf("unexpected non-markdown file installed: %s", e.Name())
		}
	}

	if !strings.Contains(buf.String(), "config.yaml") {
		t.Error("output should mention config.yaml")
	}
}

func TestRunInit_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "log_level: debug\n" {
		t.Error("init overwrote an existing config.yaml")
	}
}

func TestRunInit_ViaCommand(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	if err := run(context.Background(), &stdout, &stderr, []string{"init", dir}); err != nil {
		t.Fatalf("run init failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not created: %v", err)
	}
}

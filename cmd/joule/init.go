package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prostat/joule-agent/internal/defaults"
)

// runInit initializes a Joule working directory with default files.
// It creates the directory structure, writes the example config, and
// installs the starter knowledge documents. Existing files are never
// overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Joule workspace in %s\n", dir)

	for _, sub := range []string{"data", "docs"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	// Config may hold an API key, so keep it owner-only.
	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(configPath, defaults.ConfigYAML, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	err := fs.WalkDir(defaults.KnowledgeDocs, "docs", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		destPath := filepath.Join(dir, "docs", d.Name())

		content, err := defaults.KnowledgeDocs.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}

		if err := writeIfMissing(destPath, content, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(w, "  ✓ %s\n", destPath)
		return nil
	})
	if err != nil {
		return fmt.Errorf("install knowledge docs: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml, then run `joule serve` from this directory.")
	return nil
}

// writeIfMissing writes content to path only if the file does not already
// exist, so init never overwrites user customizations.
func writeIfMissing(path string, content []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, perm)
}

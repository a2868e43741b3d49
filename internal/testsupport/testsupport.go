// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// NewConfig returns a config rooted in per-test temp directories, one
// worker, skip-existing enabled.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.TempDir = filepath.Join(base, "temp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DoneDir = filepath.Join(base, "done")
	cfg.Processing.Workers = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WriteFile creates path (and its parents) with the given content.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MediaFile drops a fake media file into the config's input directory and
// returns its absolute path.
func MediaFile(t *testing.T, cfg *config.Config, name string, size int) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.InputDir, name)
	data := make([]byte, size)
	WriteFile(t, path, data)
	return path
}

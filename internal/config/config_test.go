package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidatesAfterRequiredPaths(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	cfg.Paths.InputDir = "/media/in"
	cfg.Paths.OutputDir = "/media/out"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with paths should validate, got: %v", err)
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	cfg.Processing.Model = "bogus"
	cfg.Output.Format = "pdf"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"input_dir", "output_dir", "unknown model", "unsupported format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got: %v", want, err)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, found, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
	if cfg.Processing.Model != defaultModel {
		t.Fatalf("expected default model, got %q", cfg.Processing.Model)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
input_dir = "/in"
output_dir = "/out"

[processing]
workers = 0
extensions = ["MP4", "mkv", ""]

[output]
format = "SRT"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, found, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if cfg.Processing.Workers != 1 {
		t.Fatalf("expected workers clamped to 1, got %d", cfg.Processing.Workers)
	}
	if len(cfg.Processing.Extensions) != 2 || cfg.Processing.Extensions[0] != ".mp4" || cfg.Processing.Extensions[1] != ".mkv" {
		t.Fatalf("unexpected extensions: %v", cfg.Processing.Extensions)
	}
	if cfg.Output.Format != "srt" {
		t.Fatalf("expected lowered format, got %q", cfg.Output.Format)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("first WriteSample failed: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[processing]") {
		t.Fatal("sample config missing processing section")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	if got := ExpandPath("~/videos"); got != filepath.Join(home, "videos") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/absolute"); got != "/absolute" {
		t.Fatalf("ExpandPath should pass through absolute paths, got %q", got)
	}
}

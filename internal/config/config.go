package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for a batch run.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
	LogDir    string `toml:"log_dir"`
	DoneDir   string `toml:"done_dir"`
}

// Processing contains batch behavior settings.
type Processing struct {
	Model        string   `toml:"model"`
	Language     string   `toml:"language"`
	Workers      int      `toml:"workers"`
	SkipExisting bool     `toml:"skip_existing"`
	MoveToDone   bool     `toml:"move_to_done"`
	KeepTemp     bool     `toml:"keep_temp"`
	Extensions   []string `toml:"extensions"`
}

// Output contains transcript serialization settings.
type Output struct {
	Format            string `toml:"format"`
	IncludeTimestamps bool   `toml:"include_timestamps"`
}

// Engines contains external tool settings.
type Engines struct {
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	WhisperBinary    string `toml:"whisper_binary"`
	SampleRate       int    `toml:"sample_rate"`
	Channels         int    `toml:"channels"`
	StallTimeout     int    `toml:"stall_timeout"`
	TerminationGrace int    `toml:"termination_grace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Processing Processing `toml:"processing"`
	Output     Output     `toml:"output"`
	Engines    Engines    `toml:"engines"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe", "config.toml")
	}
	return ExpandPath("~/.config/scribe/config.toml")
}

// Load reads configuration from path, falling back to the default location
// when path is empty. A missing file yields defaults without error; the
// second return value reports whether a file was actually read.
func Load(path string) (*Config, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	resolved = ExpandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, false, nil
		}
		return nil, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.normalize()
	return &cfg, true, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the writable directories the run depends on.
// The input directory is deliberately excluded: it is read-only and its
// absence is a discovery error, not something to paper over.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if c.Processing.MoveToDone && c.Paths.DoneDir != "" {
		if err := os.MkdirAll(c.Paths.DoneDir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", c.Paths.DoneDir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func (c *Config) normalize() {
	c.Paths.InputDir = ExpandPath(c.Paths.InputDir)
	c.Paths.OutputDir = ExpandPath(c.Paths.OutputDir)
	c.Paths.TempDir = ExpandPath(c.Paths.TempDir)
	c.Paths.LogDir = ExpandPath(c.Paths.LogDir)
	c.Paths.DoneDir = ExpandPath(c.Paths.DoneDir)

	if c.Paths.TempDir == "" {
		c.Paths.TempDir = filepath.Join(os.TempDir(), "scribe", "audio")
	}
	if c.Processing.Workers < 1 {
		c.Processing.Workers = 1
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	normalized := make([]string, 0, len(c.Processing.Extensions))
	for _, ext := range c.Processing.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Processing.Extensions = normalized
}

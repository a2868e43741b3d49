package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownFormats = map[string]struct{}{
	"txt":  {},
	"srt":  {},
	"vtt":  {},
	"json": {},
}

var knownModels = map[string]struct{}{
	"tiny":     {},
	"base":     {},
	"small":    {},
	"medium":   {},
	"large":    {},
	"large-v2": {},
	"large-v3": {},
}

// Validate checks the configuration for values a run cannot proceed with.
// All problems are reported at once so the user can fix them in one pass.
func (c *Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Paths.InputDir) == "" {
		issues = append(issues, "paths.input_dir is required")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		issues = append(issues, "paths.output_dir is required")
	}
	if c.Processing.MoveToDone && strings.TrimSpace(c.Paths.DoneDir) == "" {
		issues = append(issues, "paths.done_dir is required when processing.move_to_done is set")
	}
	if _, ok := knownModels[c.Processing.Model]; !ok {
		issues = append(issues, fmt.Sprintf("processing.model: unknown model %q", c.Processing.Model))
	}
	if c.Processing.Workers < 1 {
		issues = append(issues, "processing.workers must be at least 1")
	}
	if len(c.Processing.Extensions) == 0 {
		issues = append(issues, "processing.extensions must not be empty")
	}
	if _, ok := knownFormats[c.Output.Format]; !ok {
		issues = append(issues, fmt.Sprintf("output.format: unsupported format %q", c.Output.Format))
	}
	if c.Engines.SampleRate <= 0 {
		issues = append(issues, "engines.sample_rate must be positive")
	}
	if c.Engines.Channels <= 0 {
		issues = append(issues, "engines.channels must be positive")
	}
	if c.Engines.StallTimeout <= 0 {
		issues = append(issues, "engines.stall_timeout must be positive")
	}

	if len(issues) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(issues, "; "))
}

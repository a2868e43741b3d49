// Package ffmpeg extracts normalized PCM audio from media containers by
// driving the ffmpeg command line tool and translating its progress stream
// into normalized progress values.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"scribe/internal/progress"
	"scribe/internal/services"
)

var commandContext = exec.CommandContext

const (
	defaultSampleRate = 16000
	defaultChannels   = 1
)

// Extractor runs ffmpeg to produce 16-bit PCM WAV audio suitable for
// speech-to-text input.
type Extractor struct {
	binary           string
	sampleRate       int
	channels         int
	stallTimeout     time.Duration
	terminationGrace time.Duration
}

// Option configures the extractor.
type Option func(*Extractor)

// WithBinary overrides the ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(e *Extractor) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithSampleRate sets the output sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(e *Extractor) {
		if rate > 0 {
			e.sampleRate = rate
		}
	}
}

// WithChannels sets the output channel count.
func WithChannels(channels int) Option {
	return func(e *Extractor) {
		if channels > 0 {
			e.channels = channels
		}
	}
}

// WithStallTimeout bounds the silence tolerated between progress lines.
func WithStallTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.stallTimeout = d
		}
	}
}

// WithTerminationGrace sets the SIGTERM-to-SIGKILL window.
func WithTerminationGrace(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.terminationGrace = d
		}
	}
}

// NewExtractor constructs an extractor with defaults suitable for whisper
// input: mono 16 kHz PCM.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		binary:     "ffmpeg",
		sampleRate: defaultSampleRate,
		channels:   defaultChannels,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract decodes the audio track of inputPath into a PCM WAV file at
// outputPath. totalDuration (seconds) scales the progress stream; when zero,
// only the terminal 1.0 update is emitted.
func (e *Extractor) Extract(ctx context.Context, inputPath, outputPath string, totalDuration float64, onProgress progress.Func) error {
	report := progress.Monotonic(onProgress)

	cmd := commandContext(ctx, e.binary,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn", "-sn", "-dn",
		"-ac", strconv.Itoa(e.channels),
		"-ar", strconv.Itoa(e.sampleRate),
		"-c:a", "pcm_s16le",
		"-progress", "pipe:1",
		outputPath,
	)

	err := progress.Supervise(ctx, cmd, progress.SuperviseOptions{
		Engine:           "ffmpeg",
		StallTimeout:     e.stallTimeout,
		TerminationGrace: e.terminationGrace,
		HandleLine: func(line string) {
			handleProgressLine(line, totalDuration, report)
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExtraction, "extract", inputPath, "", err)
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", inputPath, "no audio output produced", err)
	}
	if stat.Size() == 0 {
		return services.Wrap(services.ErrExtraction, "extract", inputPath, "audio output is empty", nil)
	}

	report(1.0)
	return nil
}

// handleProgressLine parses one key=value line from ffmpeg's -progress
// stream. out_time_ms carries microseconds despite the name.
func handleProgressLine(line string, totalDuration float64, report progress.Func) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_ms", "out_time_us":
		if totalDuration <= 0 {
			return
		}
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || micros < 0 {
			return
		}
		report(float64(micros) / 1e6 / totalDuration)
	case "progress":
		if strings.TrimSpace(value) == "end" {
			report(1.0)
		}
	}
}

// Version reports the installed ffmpeg version line, for startup logging.
func (e *Extractor) Version(ctx context.Context) (string, error) {
	out, err := commandContext(ctx, e.binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", e.binary, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

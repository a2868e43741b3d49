package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"scribe/internal/services"
)

func TestHandleProgressLine(t *testing.T) {
	var values []float64
	report := func(v float64) { values = append(values, v) }

	handleProgressLine("out_time_ms=5000000", 10.0, report) // 5s of 10s
	handleProgressLine("progress=continue", 10.0, report)
	handleProgressLine("not a progress line", 10.0, report)
	handleProgressLine("out_time_ms=garbage", 10.0, report)
	handleProgressLine("out_time_ms=-100", 10.0, report)
	handleProgressLine("progress=end", 10.0, report)

	want := []float64{0.5, 1.0}
	if len(values) != len(want) {
		t.Fatalf("values = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("value %d = %f, want %f", i, values[i], want[i])
		}
	}
}

func TestHandleProgressLineUnknownDuration(t *testing.T) {
	var values []float64
	handleProgressLine("out_time_ms=5000000", 0, func(v float64) { values = append(values, v) })
	if len(values) != 0 {
		t.Fatalf("expected no ratio without a duration, got %v", values)
	}
}

func TestExtractWithStubBinary(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "audio.wav")

	restore := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		script := `printf 'out_time_ms=1000000\nprogress=end\n'; printf 'RIFFdata' > "$STUB_OUT"`
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
		cmd.Env = append(os.Environ(), "STUB_OUT="+outPath)
		return cmd
	}
	defer func() { commandContext = restore }()

	var last float64
	e := NewExtractor()
	err := e.Extract(context.Background(), filepath.Join(dir, "in.mp4"), outPath, 2.0, func(v float64) { last = v })
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if last != 1.0 {
		t.Fatalf("final progress = %f, want 1.0", last)
	}
}

func TestExtractEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "audio.wav")

	restore := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", `: > "$STUB_OUT"`)
		cmd.Env = append(os.Environ(), "STUB_OUT="+outPath)
		return cmd
	}
	defer func() { commandContext = restore }()

	err := NewExtractor().Extract(context.Background(), "in.mp4", outPath, 0, nil)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error for empty output, got %v", err)
	}
}

func TestExtractEngineFailure(t *testing.T) {
	restore := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", `echo 'decode error' >&2; exit 1`)
	}
	defer func() { commandContext = restore }()

	err := NewExtractor().Extract(context.Background(), "in.mp4", "/nonexistent/out.wav", 0, nil)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestNewExtractorOptions(t *testing.T) {
	e := NewExtractor(WithBinary("/opt/ffmpeg"), WithSampleRate(44100), WithChannels(2))
	if e.binary != "/opt/ffmpeg" || e.sampleRate != 44100 || e.channels != 2 {
		t.Fatalf("options not applied: %+v", e)
	}
	d := NewExtractor()
	if d.sampleRate != defaultSampleRate || d.channels != defaultChannels {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

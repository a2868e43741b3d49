package whisper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"scribe/internal/services"
)

const sampleWhisperJSON = `{
  "text": " Hello world. This is a test.",
  "language": "en",
  "segments": [
    {"id": 0, "start": 0.0, "end": 3.5, "text": " Hello world.", "avg_logprob": -0.25},
    {"id": 1, "start": 3.5, "end": 7.0, "text": " This is a test.", "avg_logprob": -0.5,
     "words": [{"word": " This", "start": 3.5, "end": 3.8, "probability": 0.98}]}
  ]
}`

func TestParseOutput(t *testing.T) {
	result, err := ParseOutput([]byte(sampleWhisperJSON))
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if result.Text != "Hello world. This is a test." {
		t.Errorf("text = %q", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("language = %q, want en", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(result.Segments))
	}
	if result.Duration != 7.0 {
		t.Errorf("duration = %f, want 7.0", result.Duration)
	}
	seg := result.Segments[0]
	if seg.Confidence <= 0 || seg.Confidence > 1 {
		t.Errorf("confidence out of range: %f", seg.Confidence)
	}
	if len(result.Segments[1].Words) != 1 || result.Segments[1].Words[0].Word != "This" {
		t.Errorf("unexpected words: %+v", result.Segments[1].Words)
	}
}

func TestParseOutputMalformed(t *testing.T) {
	if _, err := ParseOutput([]byte("{broken")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"01:02.500", 62.5},
		{"01:02:05.250", 3725.25},
		{"00:00.000", 0},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.in)
		if err != nil {
			t.Fatalf("parseClock(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("parseClock(%q) = %f, want %f", tc.in, got, tc.want)
		}
	}
	if _, err := parseClock("nope"); err == nil {
		t.Fatal("expected error for malformed clock")
	}
}

func TestHandleSegmentLine(t *testing.T) {
	var values []float64
	report := func(v float64) { values = append(values, v) }

	handleSegmentLine("[00:00.000 --> 00:05.000]  Hello there.", 10.0, report)
	handleSegmentLine("Detected language: English", 10.0, report)
	handleSegmentLine("[00:05.000 --> 00:10.000]  More text.", 10.0, report)

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

func TestTranscribeWithStubBinary(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(audioPath, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "clip.json")

	restore := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		script := `printf '[00:00.000 --> 00:03.500]  Hello world.\n'; cat "$STUB_JSON_SRC" > "$STUB_JSON_DST"`
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
		srcPath := filepath.Join(dir, "fixture.json")
		if err := os.WriteFile(srcPath, []byte(sampleWhisperJSON), 0o644); err != nil {
			t.Fatal(err)
		}
		cmd.Env = append(os.Environ(), "STUB_JSON_SRC="+srcPath, "STUB_JSON_DST="+jsonPath)
		return cmd
	}
	defer func() { commandContext = restore }()

	var last float64
	tr := NewTranscriber(WithModel("base"))
	result, err := tr.Transcribe(context.Background(), audioPath, Request{
		Language:     "en",
		DurationHint: 7.0,
		OutputDir:    dir,
	}, func(v float64) { last = v })
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if result.Model != "base" {
		t.Errorf("model = %q, want base", result.Model)
	}
	if result.ProcessingTime <= 0 {
		t.Error("expected positive processing time")
	}
	if last != 1.0 {
		t.Errorf("final progress = %f, want 1.0", last)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	dir := t.TempDir()
	restore := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", "true")
	}
	defer func() { commandContext = restore }()

	_, err := NewTranscriber().Transcribe(context.Background(), filepath.Join(dir, "clip.wav"), Request{OutputDir: dir}, nil)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

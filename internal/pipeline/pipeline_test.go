package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/progress"
	"scribe/internal/render"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

type fakeProber struct {
	info media.Info
	err  error
}

func (f *fakeProber) Probe(_ context.Context, _ string) (media.Info, error) {
	return f.info, f.err
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _, outputPath string, _ float64, onProgress progress.Func) error {
	if f.err != nil {
		return f.err
	}
	if err := os.WriteFile(outputPath, []byte("RIFF"), 0o644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(1.0)
	}
	return nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ whisper.Request, onProgress progress.Func) (*transcript.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		onProgress(1.0)
	}
	return &transcript.Result{
		Text:     f.text,
		Language: "en",
		Model:    "base",
		Segments: []transcript.Segment{{Start: 0, End: 2, Text: f.text}},
	}, nil
}

// blockingTranscriber signals once a transcription is underway, then holds
// until the context is cancelled.
type blockingTranscriber struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, _ string, _ whisper.Request, _ progress.Func) (*transcript.Result, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestRunner(t *testing.T, cfg *config.Config, opts Options) (*Runner, *ledger.Ledger) {
	t.Helper()
	led := ledger.Open(filepath.Join(cfg.Paths.OutputDir, ledger.Filename), nil)
	opts.Config = cfg
	opts.Logger = logging.NewNop()
	opts.Ledger = led
	if opts.Prober == nil {
		opts.Prober = &fakeProber{info: media.Info{Duration: 60, HasAudio: true}}
	}
	if opts.Extractor == nil {
		opts.Extractor = &fakeExtractor{}
	}
	if opts.Transcriber == nil {
		opts.Transcriber = &fakeTranscriber{text: "hello world"}
	}
	if opts.Renderer == nil {
		opts.Renderer = &render.TextRenderer{}
	}
	runner, err := NewRunner(opts)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return runner, led
}

func scanInput(t *testing.T, cfg *config.Config) []discovery.WorkItem {
	t.Helper()
	items, err := discovery.Scan(cfg.Paths.InputDir, true, cfg.Processing.Extensions)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return items
}

func TestRunnerProcessesAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		testsupport.MediaFile(t, cfg, name, 128)
	}

	runner, led := newTestRunner(t, cfg, Options{})
	result, _ := runner.Run(context.Background(), scanInput(t, cfg))

	if result.Processed != 3 || result.Successful != 3 || result.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", result)
	}
	if led.Len() != 3 {
		t.Fatalf("ledger entries = %d, want 3", led.Len())
	}
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		out := filepath.Join(cfg.Paths.OutputDir, name)
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("missing output %s: %v", out, err)
		}
		if !strings.Contains(string(data), "hello world") {
			t.Errorf("output %s = %q", name, data)
		}
	}
}

func TestRunnerSkipsRecordedSuccesses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4"} {
		testsupport.MediaFile(t, cfg, name, 128)
	}
	items := scanInput(t, cfg)

	runner, led := newTestRunner(t, cfg, Options{})

	// Pre-record two items as successful with existing non-empty outputs.
	for _, item := range items[:2] {
		out, err := OutputPath(cfg, ".txt", item.Path)
		if err != nil {
			t.Fatal(err)
		}
		testsupport.WriteFile(t, out, []byte("prior transcript\n"))
		id := ledger.Identity(item.Path, item.ModTime)
		if err := led.Record(id, ledger.Entry{Success: true, OutputFile: out}); err != nil {
			t.Fatal(err)
		}
	}

	result, _ := runner.Run(context.Background(), items)
	if result.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", result.Skipped)
	}
	if result.Processed != 3 {
		t.Fatalf("processed = %d, want 3", result.Processed)
	}
	if result.Discovered != 5 {
		t.Fatalf("discovered = %d, want 5", result.Discovered)
	}
}

func TestRunnerValidationFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "empty.mp4", 0) // zero-byte
	testsupport.MediaFile(t, cfg, "good.mp4", 128)

	runner, led := newTestRunner(t, cfg, Options{})
	result, failures := runner.Run(context.Background(), scanInput(t, cfg))

	if result.Failed != 1 || result.Successful != 1 {
		t.Fatalf("unexpected stats: %+v", result)
	}
	if len(failures) != 1 || failures[0].Kind != services.KindValidation {
		t.Fatalf("unexpected failure report: %+v", failures)
	}

	var failedEntry *ledger.Entry
	for _, entry := range led.Entries() {
		if !entry.Success {
			e := entry
			failedEntry = &e
		}
	}
	if failedEntry == nil {
		t.Fatal("failure must be recorded in the ledger")
	}
	if !strings.Contains(failedEntry.Error, "validation") {
		t.Errorf("error text = %q", failedEntry.Error)
	}
}

func TestRunnerEmptyResultSoftFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "silent.mp4", 128)

	runner, led := newTestRunner(t, cfg, Options{
		Transcriber: &fakeTranscriber{text: "   "},
	})
	result, _ := runner.Run(context.Background(), scanInput(t, cfg))

	if result.Failed != 1 || result.Successful != 0 {
		t.Fatalf("unexpected stats: %+v", result)
	}
	for _, entry := range led.Entries() {
		if entry.Success {
			t.Fatalf("empty result recorded as success: %+v", entry)
		}
	}
}

func TestRunnerEngineFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "broken.mp4", 128)

	runner, _ := newTestRunner(t, cfg, Options{
		Extractor: &fakeExtractor{err: services.Wrap(services.ErrExtraction, "extract", "broken.mp4", "", nil)},
	})
	result, _ := runner.Run(context.Background(), scanInput(t, cfg))
	if result.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", result)
	}
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "a.mp4", 128)
	testsupport.MediaFile(t, cfg, "b.mp4", 128)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, led := newTestRunner(t, cfg, Options{})
	result, _ := runner.Run(ctx, scanInput(t, cfg))

	if result.Processed != 0 {
		t.Fatalf("cancelled run processed %d items", result.Processed)
	}
	if led.Len() != 0 {
		t.Fatal("cancelled items must not be recorded")
	}
}

func TestRunnerCancelledMidFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "long.mp4", 128)
	testsupport.MediaFile(t, cfg, "queued.mp4", 128)

	tr := &blockingTranscriber{started: make(chan struct{})}
	runner, led := newTestRunner(t, cfg, Options{Transcriber: tr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-tr.started
		cancel()
	}()

	result, failures := runner.Run(ctx, scanInput(t, cfg))

	if result.Processed != 0 {
		t.Fatalf("interrupted run processed %d items", result.Processed)
	}
	if len(failures) != 0 {
		t.Fatalf("interrupted items reported as failures: %+v", failures)
	}
	if led.Len() != 0 {
		t.Fatal("interrupted items must not be recorded, they stay eligible")
	}
	entries, err := os.ReadDir(cfg.Paths.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not cleaned after interrupt: %v", entries)
	}
}

func TestRunnerConcurrent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.Workers = 4
	names := []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4", "f.mp4", "g.mp4", "h.mp4"}
	for _, name := range names {
		testsupport.MediaFile(t, cfg, name, 128)
	}

	runner, led := newTestRunner(t, cfg, Options{})
	result, _ := runner.Run(context.Background(), scanInput(t, cfg))

	if result.Processed != len(names) || result.Successful != len(names) {
		t.Fatalf("unexpected stats: %+v", result)
	}
	if led.Len() != len(names) {
		t.Fatalf("ledger entries = %d, want %d", led.Len(), len(names))
	}
}

func TestRunnerRelocatesSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.MoveToDone = true
	src := testsupport.MediaFile(t, cfg, "clip.mp4", 128)

	runner, _ := newTestRunner(t, cfg, Options{})
	result, _ := runner.Run(context.Background(), scanInput(t, cfg))
	if result.Successful != 1 {
		t.Fatalf("unexpected stats: %+v", result)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should have been moved")
	}
	moved := filepath.Join(cfg.Paths.DoneDir, "clip.mp4")
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
}

func TestRunnerCleansTempAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MediaFile(t, cfg, "clip.mp4", 128)

	runner, _ := newTestRunner(t, cfg, Options{})
	_, _ = runner.Run(context.Background(), scanInput(t, cfg))

	entries, err := os.ReadDir(cfg.Paths.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir not cleaned: %v", entries)
	}
}

func TestOutputPathMirrorsRelative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(cfg.Paths.InputDir, "season 1", "episode?.mp4")

	out, err := OutputPath(cfg, ".srt", input)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cfg.Paths.OutputDir, "season 1", "episode_.srt")
	if out != want {
		t.Fatalf("OutputPath = %q, want %q", out, want)
	}
}

func TestSweepTemp(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "scribe-old.wav")
	fresh := filepath.Join(dir, "scribe-new.wav")
	other := filepath.Join(dir, "unrelated.wav")
	for _, p := range []string{stale, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	removed := SweepTemp(dir, 24*time.Hour, logging.NewNop())
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale temp file should be gone")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should survive sweep: %v", p, err)
		}
	}
}

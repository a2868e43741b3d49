package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/fileutil"
	"scribe/internal/language"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/progress"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
)

// task processes one work item through
// validate -> extract -> transcribe -> serialize -> record -> relocate -> cleanup.
// Cancellation is checked before every stage; a cancelled item leaves no
// ledger entry and stays eligible for the next run.
type task struct {
	opts Options
	item discovery.WorkItem
}

func (t *task) process(ctx context.Context) Outcome {
	outcome := Outcome{
		Item:     t.item,
		Identity: ledger.Identity(t.item.Path, t.item.ModTime),
	}
	logger := t.opts.Logger.With(logging.String("file", filepath.Base(t.item.Path)))

	outputPath, err := OutputPath(t.opts.Config, t.opts.Renderer.Extension(), t.item.Path)
	if err != nil {
		return t.fail(outcome, services.Wrap(services.ErrValidation, "resolve output", t.item.Path, "", err))
	}
	outcome.OutputPath = outputPath

	// Validate.
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	info, err := t.validate(ctx)
	if err != nil {
		return t.fail(outcome, err)
	}
	outcome.MediaDuration = info.Duration

	// Extract.
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	audioPath := t.tempAudioPath()
	defer t.cleanup(audioPath, logger)

	started := time.Now()
	logger.Info("extracting audio", logging.Float64("duration_s", info.Duration))
	err = t.opts.Extractor.Extract(ctx, t.item.Path, audioPath, info.Duration, stageProgress(logger, "extract"))
	if err != nil {
		if ctx.Err() != nil {
			outcome.Err = ctx.Err()
			return outcome
		}
		return t.fail(outcome, err)
	}

	// Transcribe.
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	logger.Info("transcribing")
	result, err := t.opts.Transcriber.Transcribe(ctx, audioPath, whisper.Request{
		Language:     language.NormalizeHint(t.opts.Config.Processing.Language),
		DurationHint: info.Duration,
		OutputDir:    filepath.Dir(audioPath),
	}, stageProgress(logger, "transcribe"))
	if err != nil {
		if ctx.Err() != nil {
			outcome.Err = ctx.Err()
			return outcome
		}
		return t.fail(outcome, err)
	}
	result.Duration = info.Duration
	outcome.ProcessingTime = time.Since(started).Seconds()

	if result.Empty() {
		return t.fail(outcome, services.Wrap(services.ErrEmptyResult, "transcribe", t.item.Path, "engine produced no text", nil))
	}

	// Serialize.
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	data, err := t.opts.Renderer.Render(result)
	if err != nil {
		return t.fail(outcome, services.Wrap(services.ErrPersistence, "serialize", outputPath, "", err))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return t.fail(outcome, services.Wrap(services.ErrPersistence, "serialize", outputPath, "create output directory", err))
	}
	if err := fileutil.WriteFileAtomic(outputPath, data, 0o644); err != nil {
		return t.fail(outcome, services.Wrap(services.ErrPersistence, "serialize", outputPath, "", err))
	}

	// Record.
	t.record(outcome, result.Model, nil)

	// Relocate.
	if t.opts.Config.Processing.MoveToDone {
		if err := t.relocate(logger); err != nil {
			// The transcript exists and is recorded; a failed move is not a
			// pipeline failure.
			logger.Warn("relocate source failed", logging.Error(err))
		}
	}

	logger.Info("transcribed",
		logging.String("output", outputPath),
		logging.Float64("processing_s", outcome.ProcessingTime),
	)
	return outcome
}

// fail records the failure in the ledger and closes the outcome. Hard and
// soft failures both land here; cancellation never does.
func (t *task) fail(outcome Outcome, err error) Outcome {
	outcome.Err = err
	outcome.Kind = services.Classify(err)
	t.record(outcome, t.opts.Config.Processing.Model, err)
	return outcome
}

func (t *task) record(outcome Outcome, model string, failure error) {
	entry := ledger.Entry{
		SourceFile:     t.item.Path,
		OutputFile:     outcome.OutputPath,
		Duration:       outcome.MediaDuration,
		ProcessingTime: outcome.ProcessingTime,
		ModelUsed:      model,
		Success:        failure == nil,
	}
	if failure != nil {
		entry.Error = failure.Error()
	}
	if err := t.opts.Ledger.Record(outcome.Identity, entry); err != nil {
		t.opts.Logger.Error("ledger update failed",
			logging.String("file", t.item.Path),
			logging.Error(err),
		)
	}
}

func (t *task) validate(ctx context.Context) (media.Info, error) {
	stat, err := os.Stat(t.item.Path)
	if err != nil {
		return media.Info{}, services.Wrap(services.ErrValidation, "validate", t.item.Path, "stat input", err)
	}
	if stat.Size() == 0 {
		return media.Info{}, services.Wrap(services.ErrValidation, "validate", t.item.Path, "file is empty", nil)
	}

	info, err := t.opts.Prober.Probe(ctx, t.item.Path)
	if err != nil {
		return media.Info{}, services.Wrap(services.ErrValidation, "validate", t.item.Path, "probe", err)
	}
	if !info.HasAudio {
		return media.Info{}, services.Wrap(services.ErrValidation, "validate", t.item.Path, "no audio track", nil)
	}
	if info.Duration <= 0 {
		return media.Info{}, services.Wrap(services.ErrValidation, "validate", t.item.Path, "unknown or zero duration", nil)
	}
	return info, nil
}

// tempAudioPath is unique per attempt so concurrent workers never collide.
func (t *task) tempAudioPath() string {
	name := fmt.Sprintf("scribe-%s.wav", uuid.NewString())
	return filepath.Join(t.opts.Config.Paths.TempDir, name)
}

// cleanup removes the temp audio file and the JSON sidecar the transcriber
// writes next to it. Deletion failures are logged, never escalated.
func (t *task) cleanup(audioPath string, logger *slog.Logger) {
	if t.opts.Config.Processing.KeepTemp {
		return
	}
	sidecar := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
	for _, path := range []string{audioPath, sidecar} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("remove temp file", logging.String("path", path), logging.Error(err))
		}
	}
}

func (t *task) relocate(logger *slog.Logger) error {
	doneDir := t.opts.Config.Paths.DoneDir
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return fmt.Errorf("create done directory: %w", err)
	}
	dst := fileutil.UniqueDestination(doneDir, filepath.Base(t.item.Path))
	if err := fileutil.MoveFile(t.item.Path, dst); err != nil {
		return err
	}
	logger.Info("moved source", logging.String("destination", dst))
	return nil
}

// OutputPath computes the transcript destination for an input file: the
// output root plus the input's sanitized relative path with the renderer's
// extension. Inputs outside the input root fall back to their base name.
func OutputPath(cfg *config.Config, extension, inputPath string) (string, error) {
	rel, err := filepath.Rel(cfg.Paths.InputDir, inputPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(inputPath)
	}
	rel = fileutil.SanitizeRelPath(rel)
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	if stem == "" {
		return "", fmt.Errorf("cannot derive output name from %q", inputPath)
	}
	return filepath.Join(cfg.Paths.OutputDir, stem+extension), nil
}

// stageProgress logs coarse progress without flooding the log: one line per
// 25% advance.
func stageProgress(logger *slog.Logger, stage string) progress.Func {
	lastQuarter := -1
	return func(value float64) {
		quarter := int(value * 4)
		if quarter <= lastQuarter {
			return
		}
		lastQuarter = quarter
		logger.Debug("progress",
			logging.String("stage", stage),
			logging.Int("percent", int(value*100)),
		)
	}
}

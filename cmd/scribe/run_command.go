package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/pipeline"
	"scribe/internal/render"
	"scribe/internal/runlog"
	"scribe/internal/services/ffmpeg"
	"scribe/internal/services/whisper"
	"scribe/internal/stats"
)

const tempSweepAge = 24 * time.Hour

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		formatFlag    string
		modelFlag     string
		languageFlag  string
		workersFlag   int
		recursiveFlag bool
		moveFlag      bool
		keepTempFlag  bool
		reprocessFlag bool
	)

	cmd := &cobra.Command{
		Use:   "run [input-dir]",
		Short: "Transcribe every media file under the input directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Paths.InputDir = config.ExpandPath(args[0])
			}
			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.Paths.OutputDir = config.ExpandPath(outputFlag)
			}
			if flags.Changed("format") {
				cfg.Output.Format = strings.ToLower(strings.TrimSpace(formatFlag))
			}
			if flags.Changed("model") {
				cfg.Processing.Model = modelFlag
			}
			if flags.Changed("language") {
				cfg.Processing.Language = languageFlag
			}
			if flags.Changed("workers") {
				cfg.Processing.Workers = workersFlag
			}
			if flags.Changed("move-done") {
				cfg.Processing.MoveToDone = moveFlag
			}
			if flags.Changed("keep-temp") {
				cfg.Processing.KeepTemp = keepTempFlag
			}
			if reprocessFlag {
				cfg.Processing.SkipExisting = false
			}

			if cfg.Paths.InputDir == "" {
				return fmt.Errorf("no input directory: pass one as an argument or set paths.input_dir")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			return runBatch(cmd.Context(), cfg, recursiveFlag)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory for transcripts")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: txt, srt, vtt, json")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Whisper model size")
	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language hint (ISO-639-1 or auto)")
	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Concurrent files to process")
	cmd.Flags().BoolVarP(&recursiveFlag, "recursive", "r", true, "Scan the input directory recursively")
	cmd.Flags().BoolVar(&moveFlag, "move-done", false, "Move sources to the done directory after success")
	cmd.Flags().BoolVar(&keepTempFlag, "keep-temp", false, "Keep intermediate audio files")
	cmd.Flags().BoolVar(&reprocessFlag, "reprocess", false, "Ignore ledger history and reprocess everything")

	return cmd
}

func runBatch(parent context.Context, cfg *config.Config, recursive bool) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if removed := pipeline.SweepTemp(cfg.Paths.TempDir, tempSweepAge, logger); removed > 0 {
		logger.Info("removed stale temp files", logging.Int("count", removed))
	}

	items, err := discovery.Scan(cfg.Paths.InputDir, recursive, cfg.Processing.Extensions)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		logger.Info("no media files found", logging.String("input", cfg.Paths.InputDir))
		return nil
	}
	logger.Info("discovered media files",
		logging.Int("count", len(items)),
		logging.String("input", cfg.Paths.InputDir),
	)

	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	renderer, err := render.ForFormat(format, cfg.Output.IncludeTimestamps)
	if err != nil {
		return err
	}

	led := ledger.Open(filepath.Join(cfg.Paths.OutputDir, ledger.Filename), logger)

	runStore, err := runlog.Open(cfg.Paths.LogDir)
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
		runStore = nil
	} else {
		defer runStore.Close()
	}
	runID := ""
	if runStore != nil {
		runID, err = runStore.StartRun(ctx, cfg.Paths.InputDir, cfg.Processing.Model, cfg.Processing.Language, cfg.Processing.Workers)
		if err != nil {
			logger.Warn("record run start", logging.Error(err))
		}
	}

	stallTimeout := time.Duration(cfg.Engines.StallTimeout) * time.Second
	grace := time.Duration(cfg.Engines.TerminationGrace) * time.Second

	runner, err := pipeline.NewRunner(pipeline.Options{
		Config: cfg,
		Logger: logger,
		Ledger: led,
		Prober: media.NewProber(media.WithBinary(cfg.Engines.FFprobeBinary)),
		Extractor: ffmpeg.NewExtractor(
			ffmpeg.WithBinary(cfg.Engines.FFmpegBinary),
			ffmpeg.WithSampleRate(cfg.Engines.SampleRate),
			ffmpeg.WithChannels(cfg.Engines.Channels),
			ffmpeg.WithStallTimeout(stallTimeout),
			ffmpeg.WithTerminationGrace(grace),
		),
		Transcriber: whisper.NewTranscriber(
			whisper.WithBinary(cfg.Engines.WhisperBinary),
			whisper.WithModel(cfg.Processing.Model),
			whisper.WithStallTimeout(stallTimeout),
			whisper.WithTerminationGrace(grace),
		),
		Renderer: renderer,
	})
	if err != nil {
		return err
	}

	result, failures := runner.Run(ctx, items)
	interrupted := ctx.Err() != nil

	if runStore != nil && runID != "" {
		// The signal context is done after an interrupt; finish the record
		// with a fresh one.
		if err := runStore.FinishRun(context.Background(), runID, runlog.Summary{
			Discovered:     result.Discovered,
			Successful:     result.Successful,
			Failed:         result.Failed,
			Skipped:        result.Skipped,
			MediaDuration:  result.TotalMediaDuration,
			ProcessingTime: result.TotalProcessing,
			Interrupted:    interrupted,
		}); err != nil {
			logger.Warn("record run end", logging.Error(err))
		}
	}

	printRunSummary(result, interrupted)
	printFailures(failures)

	if interrupted {
		return context.Canceled
	}
	return nil
}

func printFailures(failures []pipeline.Failure) {
	if len(failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, failure := range failures {
		rows = append(rows, []string{
			truncate(filepath.Base(failure.Path), 40),
			string(failure.Kind),
			truncate(failure.Err.Error(), 70),
		})
	}
	fmt.Println(renderTable(
		[]string{"Failed file", "Kind", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
}

func printRunSummary(result stats.RunStatistics, interrupted bool) {
	rows := [][]string{
		{"Discovered", fmt.Sprintf("%d", result.Discovered)},
		{"Processed", fmt.Sprintf("%d", result.Processed)},
		{"Successful", fmt.Sprintf("%d", result.Successful)},
		{"Failed", fmt.Sprintf("%d", result.Failed)},
		{"Skipped", fmt.Sprintf("%d", result.Skipped)},
		{"Media duration", formatSeconds(result.TotalMediaDuration)},
		{"Processing time", formatSeconds(result.TotalProcessing)},
		{"Elapsed", result.Elapsed().Round(time.Second).String()},
	}
	if rtf := result.RealtimeFactor(); rtf > 0 {
		rows = append(rows, []string{"Realtime factor", fmt.Sprintf("%.2fx", rtf)})
	}
	if interrupted {
		rows = append(rows, []string{"Interrupted", "yes"})
	}
	fmt.Println(renderKeyValues("Run summary", rows))
}

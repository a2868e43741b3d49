package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scribe/internal/discovery"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stats"
)

// Runner drives a bounded worker pool over discovered items. Items are fed
// in discovery order; with one worker this is strict processing order.
type Runner struct {
	opts Options

	mu       sync.Mutex
	failures []Failure
}

// Failure is one failed file for the end-of-run report.
type Failure struct {
	Path string
	Kind services.Kind
	Err  error
}

// NewRunner validates the wiring and constructs a runner.
func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Config == nil:
		return nil, fmt.Errorf("pipeline: config is required")
	case opts.Ledger == nil:
		return nil, fmt.Errorf("pipeline: ledger is required")
	case opts.Prober == nil:
		return nil, fmt.Errorf("pipeline: prober is required")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("pipeline: extractor is required")
	case opts.Transcriber == nil:
		return nil, fmt.Errorf("pipeline: transcriber is required")
	case opts.Renderer == nil:
		return nil, fmt.Errorf("pipeline: renderer is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Runner{opts: opts}, nil
}

// Run processes items until done or ctx is cancelled, and returns the final
// statistics plus the failed files. Per-file failures are reflected in the
// counters, never in an error; whether the run was interrupted is visible
// through ctx.Err().
func (r *Runner) Run(ctx context.Context, items []discovery.WorkItem) (stats.RunStatistics, []Failure) {
	collector := stats.NewCollector(len(items))

	pending := r.filterSkipped(items, collector)

	workers := r.opts.Config.Processing.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pending) && len(pending) > 0 {
		workers = len(pending)
	}

	jobs := make(chan discovery.WorkItem)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r.runOne(ctx, item, collector)
			}
		}()
	}

feed:
	for _, item := range pending {
		select {
		case jobs <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return collector.Finish(), r.takeFailures()
}

func (r *Runner) takeFailures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	failures := r.failures
	r.failures = nil
	return failures
}

// filterSkipped applies ledger dedup before scheduling, so skipped items
// never occupy a worker.
func (r *Runner) filterSkipped(items []discovery.WorkItem, collector *stats.Collector) []discovery.WorkItem {
	if !r.opts.Config.Processing.SkipExisting {
		return items
	}
	pending := make([]discovery.WorkItem, 0, len(items))
	for _, item := range items {
		identity := ledger.Identity(item.Path, item.ModTime)
		outputPath, err := OutputPath(r.opts.Config, r.opts.Renderer.Extension(), item.Path)
		if err == nil && r.opts.Ledger.ShouldSkip(identity, outputPath) {
			collector.RecordSkip()
			r.opts.Logger.Info("skipping, already transcribed",
				logging.String("file", filepath.Base(item.Path)),
			)
			continue
		}
		pending = append(pending, item)
	}
	return pending
}

func (r *Runner) runOne(ctx context.Context, item discovery.WorkItem, collector *stats.Collector) {
	t := &task{opts: r.opts, item: item}
	outcome := t.process(ctx)
	switch {
	case outcome.Cancelled():
		// No counters: the item remains eligible next run.
	case outcome.Succeeded():
		collector.RecordSuccess(outcome.MediaDuration, outcome.ProcessingTime)
	default:
		collector.RecordFailure()
		r.mu.Lock()
		r.failures = append(r.failures, Failure{Path: item.Path, Kind: outcome.Kind, Err: outcome.Err})
		r.mu.Unlock()
		r.opts.Logger.Error("file failed",
			logging.String("file", filepath.Base(item.Path)),
			logging.String("kind", string(outcome.Kind)),
			logging.Error(outcome.Err),
		)
	}
}

// SweepTemp removes stale intermediate audio and sidecar files left behind
// by a previous crashed or killed run.
func SweepTemp(dir string, maxAge time.Duration, logger *slog.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "scribe-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("sweep temp file", logging.String("path", path), logging.Error(err))
			continue
		}
		removed++
	}
	return removed
}

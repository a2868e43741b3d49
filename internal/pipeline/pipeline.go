// Package pipeline runs the per-file transcription state machine and the
// bounded worker pool that feeds it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/ledger"
	"scribe/internal/media"
	"scribe/internal/progress"
	"scribe/internal/render"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/transcript"
)

// Prober yields container and stream metadata for validation.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// Extractor produces the intermediate audio file for one input.
type Extractor interface {
	Extract(ctx context.Context, inputPath, outputPath string, totalDuration float64, onProgress progress.Func) error
}

// Transcriber turns extracted audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, req whisper.Request, onProgress progress.Func) (*transcript.Result, error)
}

// Options wires one Runner. All fields are required except Logger.
type Options struct {
	Config      *config.Config
	Logger      *slog.Logger
	Ledger      *ledger.Ledger
	Prober      Prober
	Extractor   Extractor
	Transcriber Transcriber
	Renderer    render.Renderer
}

// Outcome is the terminal state of one work item's pipeline run.
type Outcome struct {
	Item       discovery.WorkItem
	Identity   string
	OutputPath string
	Err        error
	Kind       services.Kind

	// MediaDuration and ProcessingTime are seconds, populated on success.
	MediaDuration  float64
	ProcessingTime float64
}

// Succeeded reports whether the item produced a transcript.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Cancelled reports whether the item was abandoned by a shutdown rather than
// failing on its own. Cancelled items get no ledger entry and stay eligible
// for the next run.
func (o Outcome) Cancelled() bool {
	return errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded)
}

// Package whisper drives the whisper command line tool and assembles its
// JSON output into transcript results.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scribe/internal/language"
	"scribe/internal/progress"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

var commandContext = exec.CommandContext

// Transcriber runs whisper against extracted audio.
type Transcriber struct {
	binary           string
	model            string
	stallTimeout     time.Duration
	terminationGrace time.Duration
}

// Option configures the transcriber.
type Option func(*Transcriber)

// WithBinary overrides the whisper binary name.
func WithBinary(binary string) Option {
	return func(t *Transcriber) {
		if binary != "" {
			t.binary = binary
		}
	}
}

// WithModel selects the whisper model size.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		if model != "" {
			t.model = model
		}
	}
}

// WithStallTimeout bounds the silence tolerated between output lines.
// Whisper loads models quietly, so this should be generous.
func WithStallTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		if d > 0 {
			t.stallTimeout = d
		}
	}
}

// WithTerminationGrace sets the SIGTERM-to-SIGKILL window.
func WithTerminationGrace(d time.Duration) Option {
	return func(t *Transcriber) {
		if d > 0 {
			t.terminationGrace = d
		}
	}
}

// NewTranscriber constructs a transcriber with the base model.
func NewTranscriber(opts ...Option) *Transcriber {
	t := &Transcriber{
		binary: "whisper",
		model:  "base",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Request carries the per-file transcription parameters.
type Request struct {
	// Language is an ISO-639-1 hint, or language.Auto for detection.
	Language string
	// DurationHint (seconds) scales segment timestamps into progress.
	DurationHint float64
	// OutputDir receives whisper's JSON sidecar file.
	OutputDir string
}

// Transcribe runs whisper on audioPath and returns the parsed result. The
// JSON sidecar whisper writes next to its other outputs is the source of
// truth; the live segment lines only feed progress.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, req Request, onProgress progress.Func) (*transcript.Result, error) {
	report := progress.Monotonic(onProgress)
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}

	args := []string{
		audioPath,
		"--model", t.model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--verbose", "True",
	}
	if req.Language != "" && req.Language != language.Auto {
		args = append(args, "--language", req.Language)
	}

	start := time.Now()
	cmd := commandContext(ctx, t.binary, args...)
	err := progress.Supervise(ctx, cmd, progress.SuperviseOptions{
		Engine:           "whisper",
		StallTimeout:     t.stallTimeout,
		TerminationGrace: t.terminationGrace,
		HandleLine: func(line string) {
			handleSegmentLine(line, req.DurationHint, report)
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTranscription, "transcribe", audioPath, "", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, stem+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", audioPath, "read whisper output", err)
	}

	result, err := ParseOutput(data)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", audioPath, "", err)
	}
	result.Model = t.model
	result.ProcessingTime = time.Since(start).Seconds()
	if result.Language == "" {
		result.Language = req.Language
	}

	report(1.0)
	return result, nil
}

// segmentLine matches whisper's verbose output, e.g.
// "[01:02.500 --> 01:05.000]  some text" with an optional hours field.
var segmentLine = regexp.MustCompile(`^\[\d{1,2}:(?:\d{1,2}:)?\d{1,2}\.\d{1,3} --> ((?:\d{1,2}:)?\d{1,2}:\d{1,2}\.\d{1,3})\]`)

func handleSegmentLine(line string, durationHint float64, report progress.Func) {
	if durationHint <= 0 {
		return
	}
	m := segmentLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return
	}
	end, err := parseClock(m[1])
	if err != nil {
		return
	}
	report(end / durationHint)
}

// parseClock converts "MM:SS.mmm" or "HH:MM:SS.mmm" to seconds.
func parseClock(value string) (float64, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	var total float64
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed timestamp %q: %w", value, err)
		}
		total = total*60 + f
	}
	return total, nil
}

// ParseOutput decodes whisper's JSON result file. Exported for testing
// without a real whisper binary.
func ParseOutput(data []byte) (*transcript.Result, error) {
	var raw whisperOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse whisper JSON: %w", err)
	}

	result := &transcript.Result{
		Text:     strings.TrimSpace(raw.Text),
		Language: language.NormalizeHint(raw.Language),
	}
	for _, seg := range raw.Segments {
		s := transcript.Segment{
			ID:         seg.ID,
			Start:      seg.Start,
			End:        seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: segmentConfidence(seg),
		}
		for _, w := range seg.Words {
			s.Words = append(s.Words, transcript.Word{
				Word:       strings.TrimSpace(w.Word),
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Probability,
			})
		}
		result.Segments = append(result.Segments, s)
		if s.End > result.Duration {
			result.Duration = s.End
		}
	}
	return result, nil
}

// segmentConfidence prefers an explicit confidence field and falls back to
// exp(avg_logprob), which maps whisper's log probabilities onto (0, 1].
func segmentConfidence(seg whisperSegment) float64 {
	if seg.Confidence > 0 {
		return seg.Confidence
	}
	if seg.AvgLogprob == 0 {
		return 0
	}
	c := math.Exp(seg.AvgLogprob)
	if c > 1 {
		c = 1
	}
	return c
}

type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	ID         int           `json:"id"`
	Start      float64       `json:"start"`
	End        float64       `json:"end"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	AvgLogprob float64       `json:"avg_logprob"`
	Words      []whisperWord `json:"words"`
}

type whisperWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

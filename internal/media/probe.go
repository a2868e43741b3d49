package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Info holds the container and stream metadata a pipeline run needs.
type Info struct {
	Duration   float64
	SizeBytes  int64
	FormatName string
	HasVideo   bool
	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int
}

// Prober wraps the ffprobe command line tool.
type Prober struct {
	binary string
}

// Option configures the prober.
type Option func(*Prober)

// WithBinary overrides the default ffprobe binary name.
func WithBinary(binary string) Option {
	return func(p *Prober) {
		if binary != "" {
			p.binary = binary
		}
	}
}

// NewProber constructs a prober using defaults.
func NewProber(opts ...Option) *Prober {
	p := &Prober{binary: "ffprobe"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe runs a single ffprobe JSON call against path and returns the parsed
// result.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	cmd := commandContext(ctx, p.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if detail := strings.TrimSpace(string(exitErr.Stderr)); detail != "" {
				return Info{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, detail)
			}
		}
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into an Info. Exported for
// testing without a real ffprobe binary.
func ParseJSON(data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	info := Info{
		Duration:   parseFloat(raw.Format.Duration),
		SizeBytes:  parseInt(raw.Format.Size),
		FormatName: raw.Format.FormatName,
	}
	for _, stream := range raw.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
			info.SampleRate = int(parseInt(stream.SampleRate))
			info.Channels = stream.Channels
		}
	}
	return info, nil
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate"`
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

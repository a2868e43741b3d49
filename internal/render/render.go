// Package render serializes transcript results into the supported output
// formats.
package render

import (
	"fmt"
	"strings"

	"scribe/internal/transcript"
)

// Format identifies an output serialization.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// Formats lists every supported format in display order.
func Formats() []Format {
	return []Format{FormatText, FormatSRT, FormatVTT, FormatJSON}
}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "txt", "text":
		return FormatText, nil
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: txt, srt, vtt, json)", value)
	}
}

// Extension returns the dotted file extension for the format.
func (f Format) Extension() string {
	return "." + string(f)
}

// Renderer turns a transcript into the bytes of one output file.
type Renderer interface {
	Render(result *transcript.Result) ([]byte, error)
	Extension() string
}

// ForFormat returns the renderer for f. includeTimestamps only affects the
// plain text format; the subtitle formats always carry timing.
func ForFormat(f Format, includeTimestamps bool) (Renderer, error) {
	switch f {
	case FormatText:
		return &TextRenderer{IncludeTimestamps: includeTimestamps}, nil
	case FormatSRT:
		return &SRTRenderer{}, nil
	case FormatVTT:
		return &VTTRenderer{}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

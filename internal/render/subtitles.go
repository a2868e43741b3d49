package render

import (
	"fmt"
	"strings"

	"scribe/internal/transcript"
)

// SRTRenderer produces SubRip subtitles: 1-based cue index, comma millisecond
// separator, blank line between cues.
type SRTRenderer struct{}

func (r *SRTRenderer) Extension() string { return ".srt" }

func (r *SRTRenderer) Render(result *transcript.Result) ([]byte, error) {
	var b strings.Builder
	for i, seg := range result.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", SRTTimestamp(seg.Start), SRTTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}

// VTTRenderer produces WebVTT subtitles: header line, dot millisecond
// separator, no cue indexes.
type VTTRenderer struct{}

func (r *VTTRenderer) Extension() string { return ".vtt" }

func (r *VTTRenderer) Render(result *transcript.Result) ([]byte, error) {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range result.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", VTTTimestamp(seg.Start), VTTTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}

package render

import (
	"strings"

	"scribe/internal/transcript"
)

// TextRenderer produces plain text, optionally prefixing each segment with
// its clock range.
type TextRenderer struct {
	IncludeTimestamps bool
}

func (r *TextRenderer) Extension() string { return ".txt" }

func (r *TextRenderer) Render(result *transcript.Result) ([]byte, error) {
	var b strings.Builder
	if r.IncludeTimestamps && len(result.Segments) > 0 {
		for _, seg := range result.Segments {
			b.WriteString("[" + FormatClock(seg.Start) + " --> " + FormatClock(seg.End) + "] ")
			b.WriteString(strings.TrimSpace(seg.Text))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(strings.TrimSpace(result.Text))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

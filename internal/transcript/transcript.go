// Package transcript defines the speech-to-text result model shared by the
// whisper client, the renderers, and the ledger.
package transcript

import "strings"

// Word is a single recognized word with its timing and confidence.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Segment is a contiguous span of recognized speech. Times are seconds from
// the start of the source media.
type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Result is a complete transcription of one media file.
type Result struct {
	Text           string    `json:"text"`
	Segments       []Segment `json:"segments"`
	Language       string    `json:"language"`
	Duration       float64   `json:"duration"`
	ProcessingTime float64   `json:"processing_time"`
	Model          string    `json:"model"`
}

// Empty reports whether the result carries no usable text. Segments that
// contain only whitespace do not count as usable.
func (r *Result) Empty() bool {
	if strings.TrimSpace(r.Text) != "" {
		return false
	}
	for _, seg := range r.Segments {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// WordCount counts whitespace-separated words in the full text.
func (r *Result) WordCount() int {
	return len(strings.Fields(r.Text))
}

// MeanConfidence averages segment confidences. Zero when no segments carry
// confidence values.
func (r *Result) MeanConfidence() float64 {
	var sum float64
	var n int
	for _, seg := range r.Segments {
		if seg.Confidence > 0 {
			sum += seg.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

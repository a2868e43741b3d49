package render

import (
	"encoding/json"
	"fmt"

	"scribe/internal/transcript"
)

// JSONRenderer produces the full structured result plus derived metadata.
type JSONRenderer struct{}

func (r *JSONRenderer) Extension() string { return ".json" }

type jsonDocument struct {
	Text           string               `json:"text"`
	Language       string               `json:"language"`
	Duration       float64              `json:"duration"`
	ProcessingTime float64              `json:"processing_time"`
	Model          string               `json:"model"`
	Segments       []transcript.Segment `json:"segments"`
	Metadata       jsonMetadata         `json:"metadata"`
}

type jsonMetadata struct {
	AverageConfidence float64 `json:"average_confidence"`
	TotalSegments     int     `json:"total_segments"`
	TotalWords        int     `json:"total_words"`
}

func (r *JSONRenderer) Render(result *transcript.Result) ([]byte, error) {
	doc := jsonDocument{
		Text:           result.Text,
		Language:       result.Language,
		Duration:       result.Duration,
		ProcessingTime: result.ProcessingTime,
		Model:          result.Model,
		Segments:       result.Segments,
		Metadata: jsonMetadata{
			AverageConfidence: result.MeanConfidence(),
			TotalSegments:     len(result.Segments),
			TotalWords:        result.WordCount(),
		},
	}
	if doc.Segments == nil {
		doc.Segments = []transcript.Segment{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	return append(data, '\n'), nil
}

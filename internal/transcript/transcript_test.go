package transcript

import "testing"

func TestEmpty(t *testing.T) {
	r := &Result{Text: "   \n"}
	if !r.Empty() {
		t.Fatal("whitespace-only text should be empty")
	}
	r.Segments = []Segment{{Text: "  \t"}}
	if !r.Empty() {
		t.Fatal("whitespace-only segments should still be empty")
	}
	r.Segments = append(r.Segments, Segment{Text: "hi"})
	if r.Empty() {
		t.Fatal("result with a usable segment is not empty")
	}
	r = &Result{Text: "hello"}
	if r.Empty() {
		t.Fatal("result with text is not empty")
	}
}

func TestWordCount(t *testing.T) {
	r := &Result{Text: "hello world  again"}
	if got := r.WordCount(); got != 3 {
		t.Fatalf("WordCount = %d, want 3", got)
	}
}

func TestMeanConfidence(t *testing.T) {
	r := &Result{Segments: []Segment{
		{Confidence: 0.8},
		{Confidence: 0.6},
		{Confidence: 0}, // no confidence reported, excluded
	}}
	if got := r.MeanConfidence(); got < 0.699 || got > 0.701 {
		t.Fatalf("MeanConfidence = %f, want 0.7", got)
	}
	empty := &Result{}
	if empty.MeanConfidence() != 0 {
		t.Fatal("expected zero mean for empty result")
	}
}

package domain

import "strings"

const SentimentUnknown = "unknown"

type Utterance struct {
	Text      string  `json:"text"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Sentiment string  `json:"sentiment"`
}

type Word struct {
	Text       string  `json:"text"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence"`
}

type TranscriptionResult struct {
	FullText   string      `json:"full_text"`
	Utterances []Utterance `json:"utterances"`
	Words      []Word      `json:"words,omitempty"`
	Provider   string      `json:"provider"`
	Confidence float64     `json:"confidence"`
}

// EnsureUtterances applies the single-utterance fallback for providers without segmentation
// and fills blank sentiments with "unknown".
func EnsureUtterances(t TranscriptionResult) TranscriptionResult {
	t.FullText = strings.TrimSpace(t.FullText)
	if t.Provider == "" || t.Provider == "none" {
		return t
	}
	if len(t.Utterances) == 0 {
		end := 0.0
		if n := len(t.Words); n > 0 {
			end = t.Words[n-1].EndSec
		}
		t.Utterances = []Utterance{{Text: t.FullText, StartSec: 0, EndSec: end, Sentiment: SentimentUnknown}}
	}
	for i := range t.Utterances {
		if strings.TrimSpace(t.Utterances[i].Sentiment) == "" {
			t.Utterances[i].Sentiment = SentimentUnknown
		}
	}
	if t.FullText == "" {
		parts := make([]string, 0, len(t.Utterances))
		for _, u := range t.Utterances {
			if s := strings.TrimSpace(u.Text); s != "" {
				parts = append(parts, s)
			}
		}
		t.FullText = strings.Join(parts, " ")
	}
	if t.Confidence < 0 {
		t.Confidence = 0
	}
	if t.Confidence > 1 {
		t.Confidence = 1
	}
	return t
}

// MeanWordConfidence averages non-zero word confidences.
func MeanWordConfidence(words []Word) float64 {
	var sum float64
	n := 0
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

package domain

type TimelineEntry struct {
	Label      string  `json:"label"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence,omitempty"`
}

// VideoInsights is the normalized output of a video-indexing provider.
type VideoInsights struct {
	Provider       string          `json:"provider"`
	DurationSec    float64         `json:"duration_sec,omitempty"`
	Scenes         []TimelineEntry `json:"scenes,omitempty"`
	Emotions       []TimelineEntry `json:"emotions,omitempty"`
	Topics         []TimelineEntry `json:"topics,omitempty"`
	FaceTrackCount int             `json:"face_track_count"`
}

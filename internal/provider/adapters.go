package provider

import (
	"context"

	"github.com/yungbote/persona-backend/internal/domain"
)

// Adapter is the part every capability client shares.
type Adapter interface {
	ID() ID
	// Configured reports whether the credentials this adapter needs are present.
	Configured() bool
}

type FaceDetector interface {
	Adapter
	DetectFaces(ctx context.Context, image []byte, maxCount int) Result[[]domain.FaceObservation]
}

type Transcriber interface {
	Adapter
	Transcribe(ctx context.Context, audio []byte) Result[domain.TranscriptionResult]
}

type VideoIndexer interface {
	Adapter
	Analyze(ctx context.Context, video []byte) Result[domain.VideoInsights]
}

// LanguageModel returns raw model text. Callers extract and validate any JSON in it.
type LanguageModel interface {
	Adapter
	Complete(ctx context.Context, systemPrompt, evidenceJSON string) Result[string]
}

type DocumentReader interface {
	Adapter
	ReadDocument(ctx context.Context, data []byte, mimeType string) Result[string]
}

// AnyConfigured reports whether at least one adapter has credentials.
func AnyConfigured[A Adapter](adapters []A) bool {
	for _, a := range adapters {
		if a.Configured() {
			return true
		}
	}
	return false
}

// IDs lists adapter IDs in order.
func IDs[A Adapter](adapters []A) []ID {
	out := make([]ID, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, a.ID())
	}
	return out
}

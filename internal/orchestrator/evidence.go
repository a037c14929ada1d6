package orchestrator

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/persona-backend/internal/chain"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/integrate"
	"github.com/yungbote/persona-backend/internal/provider"
)

// gathered is the settled output of the evidence phase.
type gathered struct {
	People        []domain.IntegratedPerson
	FaceReport    chain.Report
	Transcription *domain.TranscriptionResult
	TransReport   *chain.Report
	Video         *domain.VideoInsights
}

// gatherEvidence runs face analysis, transcription and video indexing in parallel and waits for all
// three. None of them can fail the group; the caller decides what missing evidence means.
func (s *Service) gatherEvidence(ctx context.Context, media *preparedMedia, maxPeople int) gathered {
	ctx, span := otel.Tracer("persona/orchestrator").Start(ctx, "orchestrator.evidence")
	defer span.End()

	var out gathered
	var g errgroup.Group

	g.Go(func() error {
		results, rep := chain.ConcurrentAll(ctx, provider.CapabilityFace, s.adapters.Face,
			func(ctx context.Context, a provider.FaceDetector) provider.Result[[]domain.FaceObservation] {
				return a.DetectFaces(ctx, media.Frame, maxPeople)
			})
		out.People = integrate.Integrate(results, maxPeople, s.opts.AlignMode)
		out.FaceReport = rep
		return nil
	})

	if len(media.Audio) > 0 && len(s.adapters.Transcription) > 0 {
		g.Go(func() error {
			res, rep := chain.Sequential(ctx, provider.CapabilityTranscription, s.adapters.Transcription,
				func(ctx context.Context, a provider.Transcriber) provider.Result[domain.TranscriptionResult] {
					return a.Transcribe(ctx, media.Audio)
				})
			out.TransReport = &rep
			if res.OK {
				t := domain.EnsureUtterances(res.Value)
				out.Transcription = &t
			}
			return nil
		})
	}

	if vi := s.adapters.VideoIndex; s.opts.EnableVideoIndex && vi != nil && vi.Configured() && len(media.Segment) > 0 {
		g.Go(func() error {
			res, _ := chain.Sequential(ctx, provider.CapabilityVideoIndex, []provider.VideoIndexer{vi},
				func(ctx context.Context, a provider.VideoIndexer) provider.Result[domain.VideoInsights] {
					return a.Analyze(ctx, media.Segment)
				})
			if res.OK {
				v := res.Value
				out.Video = &v
			} else {
				s.log.Info("video indexing skipped", "kind", string(res.Kind))
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}

// personEvidence adds derived hints next to the merged observation.
type personEvidence struct {
	domain.IntegratedPerson
	DominantEmotion string `json:"dominant_emotion,omitempty"`
	EstimatedAge    string `json:"estimated_age,omitempty"`
}

func newPersonEvidence(p domain.IntegratedPerson) *personEvidence {
	pe := &personEvidence{IntegratedPerson: p, DominantEmotion: p.PrimaryObservation.DominantEmotion()}
	if p.PrimaryObservation.EstimatedAge != nil {
		pe.EstimatedAge = p.PrimaryObservation.EstimatedAge.String()
	}
	return pe
}

// evidencePayload is the single JSON document handed to a language model.
type evidencePayload struct {
	MediaType      domain.MediaType            `json:"media_type"`
	SubjectCount   int                         `json:"subject_count"`
	Person         *personEvidence             `json:"person,omitempty"`
	Transcription  *domain.TranscriptionResult `json:"transcription,omitempty"`
	Video          *domain.VideoInsights       `json:"video,omitempty"`
	Text           string                      `json:"text,omitempty"`
	PreviousAnswer string                      `json:"previous_answer,omitempty"`
}

func (p evidencePayload) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

type groupPayload struct {
	People        []domain.PersonAssessment   `json:"people"`
	Transcription *domain.TranscriptionResult `json:"transcription,omitempty"`
}

type chatPayload struct {
	Analysis json.RawMessage `json:"analysis"`
	History  []chatTurn      `json:"history,omitempty"`
	Question string          `json:"question"`
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Package orchestrator runs one analysis request end to end: media preparation, evidence
// gathering across providers, LLM synthesis with validation, and persistence.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/chain"
	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/integrate"
	"github.com/yungbote/persona-backend/internal/observability"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

// MediaTranscoder is the ffmpeg-style collaborator for video requests.
type MediaTranscoder interface {
	ProbeDuration(ctx context.Context, videoPath string) (float64, error)
	ExtractSegment(ctx context.Context, videoPath, outPath string, startSec, durationSec float64) error
	ExtractFrame(ctx context.Context, videoPath, outPath string, atSec float64) error
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
}

// Store persists analyses and chat messages. LatestAnalysis and GetAnalysis return nil, nil when
// nothing matches. ListMessages returns the most recent limit messages, oldest first.
type Store interface {
	CreateAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error
	LatestAnalysis(ctx context.Context, sessionID string) (*domain.AnalysisRecord, error)
	GetAnalysis(ctx context.Context, sessionID string, id uuid.UUID) (*domain.AnalysisRecord, error)
	CreateMessages(ctx context.Context, msgs ...*domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, analysisID uuid.UUID, limit int) ([]domain.ChatMessage, error)
}

// Cache short-circuits identical requests. Implementations may drop entries at any time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Adapters lists the providers per capability, each slice in preference order.
type Adapters struct {
	Face          []provider.FaceDetector
	Transcription []provider.Transcriber
	VideoIndex    provider.VideoIndexer
	LLM           []provider.LanguageModel
	Document      []provider.DocumentReader
	// Policies is optional and only feeds breaker state into Providers.
	Policies      provider.Policies
}

type Options struct {
	MaxPeople          int
	AlignMode          integrate.AlignMode
	RequestTimeout     time.Duration
	DefaultDurationSec float64
	DefaultSegmentSec  float64
	ScratchDir         string
	EnableVideoIndex   bool
	RequiredFields     []string
	MaxTextChars       int
	ChatHistory        int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxPeople:          cfg.Media.MaxPeople,
		AlignMode:          integrate.AlignMode(cfg.Orchestrator.AlignMode),
		RequestTimeout:     cfg.Orchestrator.RequestTimeout.Duration,
		DefaultDurationSec: cfg.Media.DefaultDurationSec,
		DefaultSegmentSec:  cfg.Media.DefaultSegmentSec,
		ScratchDir:         cfg.Media.ScratchDir,
		EnableVideoIndex:   cfg.Orchestrator.EnableVideoIndex,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPeople <= 0 {
		o.MaxPeople = 5
	}
	if o.AlignMode == "" {
		o.AlignMode = integrate.AlignPositional
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Minute
	}
	if o.DefaultDurationSec <= 0 {
		o.DefaultDurationSec = 30
	}
	if o.DefaultSegmentSec <= 0 {
		o.DefaultSegmentSec = 10
	}
	if len(o.RequiredFields) == 0 {
		o.RequiredFields = prompts.RequiredFields
	}
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = 60000
	}
	if o.ChatHistory <= 0 {
		o.ChatHistory = 20
	}
	return o
}

type Service struct {
	log      *logger.Logger
	adapters Adapters
	media    MediaTranscoder
	store    Store
	cache    Cache
	metrics  *observability.Metrics
	opts     Options
}

// New wires a Service. cache and metrics may be nil.
func New(log *logger.Logger, adapters Adapters, media MediaTranscoder, store Store, cache Cache, metrics *observability.Metrics, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		log:      log.With("service", "Orchestrator"),
		adapters: adapters,
		media:    media,
		store:    store,
		cache:    cache,
		metrics:  metrics,
		opts:     opts.withDefaults(),
	}
}

type MediaRequest struct {
	SessionID string
	Data      []byte
	// MediaType is image or video. Empty means sniff Data.
	MediaType          domain.MediaType
	SegmentStartSec    float64
	SegmentDurationSec float64
	MaxPeople          int
}

type TextRequest struct {
	SessionID string
	Text      string
}

type DocumentRequest struct {
	SessionID string
	Data      []byte
	MimeType  string
	FileName  string
}

type ChatRequest struct {
	SessionID string
	Message   string
	// AnalysisID pins the conversation to one analysis; nil means the session's latest.
	AnalysisID *uuid.UUID
}

// Outcome is what an analyze call returns. NoSubjectsDetected is an outcome, not an error.
type Outcome struct {
	AnalysisID    uuid.UUID                   `json:"analysis_id"`
	MediaType     domain.MediaType            `json:"media_type"`
	Status        string                      `json:"status"`
	People        []domain.IntegratedPerson   `json:"people"`
	Assessments   []domain.PersonAssessment   `json:"assessments"`
	GroupDynamics *domain.GroupDynamics       `json:"group_dynamics,omitempty"`
	Transcription *domain.TranscriptionResult `json:"transcription,omitempty"`
	VideoInsights *domain.VideoInsights       `json:"video_insights,omitempty"`
	ProvidersUsed []string                    `json:"providers_used"`
	Note          string                      `json:"note,omitempty"`
	Reports       []chain.Report              `json:"reports,omitempty"`
	Cached        bool                        `json:"cached,omitempty"`
}

type ChatReply struct {
	AnalysisID uuid.UUID          `json:"analysis_id"`
	Message    domain.ChatMessage `json:"message"`
}

// ProviderStatus describes one adapter for the status endpoint and CLI.
type ProviderStatus struct {
	ID         provider.ID         `json:"id"`
	Capability provider.Capability `json:"capability"`
	Configured bool                `json:"configured"`
	Breaker    string              `json:"breaker,omitempty"`
}

// Providers lists every wired adapter in preference order.
func (s *Service) Providers() []ProviderStatus {
	var out []ProviderStatus
	add := func(c provider.Capability, a provider.Adapter) {
		st := ProviderStatus{ID: a.ID(), Capability: c, Configured: a.Configured()}
		if s.adapters.Policies != nil {
			st.Breaker = s.adapters.Policies.BreakerState(a.ID())
		}
		out = append(out, st)
	}
	for _, a := range s.adapters.Face {
		add(provider.CapabilityFace, a)
	}
	for _, a := range s.adapters.Transcription {
		add(provider.CapabilityTranscription, a)
	}
	if s.adapters.VideoIndex != nil {
		add(provider.CapabilityVideoIndex, s.adapters.VideoIndex)
	}
	for _, a := range s.adapters.LLM {
		add(provider.CapabilityLLM, a)
	}
	for _, a := range s.adapters.Document {
		add(provider.CapabilityDocument, a)
	}
	return out
}

func (s *Service) requireLLM() *Error {
	if !provider.AnyConfigured(s.adapters.LLM) {
		return newError(provider.KindUnavailable, "no language model provider is configured", nil)
	}
	return nil
}

func (s *Service) observe(mediaType domain.MediaType, err error, status string) {
	outcome := status
	if err != nil {
		outcome = "error"
		if e, ok := err.(*Error); ok {
			outcome = string(e.Kind)
		}
	}
	s.metrics.ObserveAnalysis(string(mediaType), outcome)
}

package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/document/docai"
	"github.com/yungbote/persona-backend/internal/provider/document/local"
	"github.com/yungbote/persona-backend/internal/provider/face/awsrekognition"
	"github.com/yungbote/persona-backend/internal/provider/face/azure"
	"github.com/yungbote/persona-backend/internal/provider/face/facepp"
	"github.com/yungbote/persona-backend/internal/provider/face/gvision"
	"github.com/yungbote/persona-backend/internal/provider/llm/anthropic"
	"github.com/yungbote/persona-backend/internal/provider/llm/gemini"
	"github.com/yungbote/persona-backend/internal/provider/llm/mock"
	"github.com/yungbote/persona-backend/internal/provider/llm/oaihttp"
	"github.com/yungbote/persona-backend/internal/provider/transcribe/assemblyai"
	"github.com/yungbote/persona-backend/internal/provider/transcribe/gladia"
	"github.com/yungbote/persona-backend/internal/provider/transcribe/gspeech"
	"github.com/yungbote/persona-backend/internal/provider/videoindex/gvideo"
)

// Clients owns every provider adapter plus the SDK connections that need closing.
type Clients struct {
	Adapters orchestrator.Adapters
	closers  []io.Closer
}

type clientWiring struct {
	ctx      context.Context
	log      *logger.Logger
	cfg      *config.Config
	metrics  *provider.Metrics
	http     *http.Client
	policies provider.Policies
	closers  []io.Closer
}

func (w *clientWiring) policy(id provider.ID, c provider.Capability) *provider.Policy {
	p := provider.NewPolicy(w.log, w.metrics, id, c, policyConfig(w.cfg, c))
	w.policies[id] = p
	return p
}

func (w *clientWiring) track(c io.Closer) {
	w.closers = append(w.closers, c)
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config, metrics *provider.Metrics) (*Clients, error) {
	log.Info("Wiring provider clients...")
	w := &clientWiring{
		ctx:      ctx,
		log:      log,
		cfg:      cfg,
		metrics:  metrics,
		http:     httpx.NewClient(),
		policies: provider.Policies{},
	}
	fail := func(err error) (*Clients, error) {
		closeAll(w.closers)
		return nil, err
	}

	var adapters orchestrator.Adapters
	for _, name := range cfg.Order.Face {
		a, err := w.face(provider.ID(name))
		if err != nil {
			return fail(err)
		}
		adapters.Face = append(adapters.Face, a)
	}
	for _, name := range cfg.Order.Transcription {
		a, err := w.transcriber(provider.ID(name))
		if err != nil {
			return fail(err)
		}
		adapters.Transcription = append(adapters.Transcription, a)
	}
	for _, name := range cfg.Order.LLM {
		a, err := w.languageModel(provider.ID(name))
		if err != nil {
			return fail(err)
		}
		adapters.LLM = append(adapters.LLM, a)
	}
	for _, name := range cfg.Order.Document {
		a, err := w.documentReader(provider.ID(name))
		if err != nil {
			return fail(err)
		}
		adapters.Document = append(adapters.Document, a)
	}
	if cfg.Orchestrator.EnableVideoIndex {
		v, err := gvideo.New(ctx, log, cfg, w.policy(provider.GoogleVideo, provider.CapabilityVideoIndex))
		if err != nil {
			return fail(fmt.Errorf("init video indexer: %w", err))
		}
		w.track(v)
		adapters.VideoIndex = v
	}
	adapters.Policies = w.policies
	return &Clients{Adapters: adapters, closers: w.closers}, nil
}

func (w *clientWiring) face(id provider.ID) (provider.FaceDetector, error) {
	p := w.policy(id, provider.CapabilityFace)
	switch id {
	case provider.FacePlusPlus:
		return facepp.New(w.cfg.FacePP, w.http, p), nil
	case provider.AzureFace:
		return azure.New(w.cfg.AzureFace, w.http, p), nil
	case provider.GoogleVision:
		c, err := gvision.New(w.ctx, w.cfg, p)
		if err != nil {
			return nil, fmt.Errorf("init google vision: %w", err)
		}
		w.track(c)
		return c, nil
	case provider.AWSRekognition:
		c, err := awsrekognition.New(w.ctx, w.cfg.AWS, p)
		if err != nil {
			return nil, fmt.Errorf("init rekognition: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown face provider %q", id)
}

func (w *clientWiring) transcriber(id provider.ID) (provider.Transcriber, error) {
	p := w.policy(id, provider.CapabilityTranscription)
	switch id {
	case provider.Gladia:
		return gladia.New(w.cfg.Gladia, w.http, p), nil
	case provider.AssemblyAI:
		return assemblyai.New(w.cfg.AssemblyAI, w.http, p), nil
	case provider.GoogleSpeech:
		c, err := gspeech.New(w.ctx, w.cfg, p)
		if err != nil {
			return nil, fmt.Errorf("init google speech: %w", err)
		}
		w.track(c)
		return c, nil
	}
	return nil, fmt.Errorf("unknown transcription provider %q", id)
}

func (w *clientWiring) languageModel(id provider.ID) (provider.LanguageModel, error) {
	p := w.policy(id, provider.CapabilityLLM)
	switch id {
	case provider.OpenAI:
		return oaihttp.New(w.cfg.OpenAI, w.http, p), nil
	case provider.Anthropic:
		return anthropic.New(w.cfg.Anthropic, w.http, p), nil
	case provider.Gemini:
		c, err := gemini.New(w.ctx, w.cfg.Gemini, w.http, p)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		return c, nil
	case provider.Mock:
		return mock.New(w.cfg.MockLLM, p), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", id)
}

func (w *clientWiring) documentReader(id provider.ID) (provider.DocumentReader, error) {
	p := w.policy(id, provider.CapabilityDocument)
	switch id {
	case provider.DocumentAI:
		c, err := docai.New(w.ctx, w.log, w.cfg, p)
		if err != nil {
			return nil, fmt.Errorf("init document ai: %w", err)
		}
		w.track(c)
		return c, nil
	case provider.LocalText:
		return local.New(p), nil
	}
	return nil, fmt.Errorf("unknown document provider %q", id)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	closeAll(c.closers)
	c.closers = nil
}

func closeAll(cs []io.Closer) {
	for i := len(cs) - 1; i >= 0; i-- {
		_ = cs[i].Close()
	}
}

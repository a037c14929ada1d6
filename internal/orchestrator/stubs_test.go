package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

func validAssessmentJSON() string {
	m := map[string]any{}
	for _, f := range prompts.RequiredFields {
		m[f] = "The evidence shows a steady and measured " + f + " throughout."
	}
	m["summary"] = "Calm and deliberate."
	m["quotes"] = []string{}
	b, _ := json.Marshal(m)
	return string(b)
}

// incompleteAssessmentJSON answers every field but the last with enough text.
func incompleteAssessmentJSON() string {
	m := map[string]any{}
	for i, f := range prompts.RequiredFields {
		if i == len(prompts.RequiredFields)-1 {
			m[f] = "short"
			continue
		}
		m[f] = "The evidence shows a steady and measured " + f + " throughout."
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// assessmentJSONWithout answers every field except the given ones, which are left out when
// absent is true and answered too briefly otherwise.
func assessmentJSONWithout(absent map[string]bool) string {
	m := map[string]any{}
	for _, f := range prompts.RequiredFields {
		short, ok := absent[f]
		switch {
		case ok && short:
			continue
		case ok:
			m[f] = "   too short   "
		default:
			m[f] = "The evidence shows a steady and measured " + f + " throughout."
		}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

type stubLLM struct {
	id         provider.ID
	configured bool
	calls      atomic.Int32
	respond    func(n int, system, evidence string) provider.Result[string]
}

func (s *stubLLM) ID() provider.ID  { return s.id }
func (s *stubLLM) Configured() bool { return s.configured }
func (s *stubLLM) Complete(ctx context.Context, system, evidence string) provider.Result[string] {
	n := int(s.calls.Add(1))
	if !s.configured {
		return provider.Failure[string](s.id, provider.KindUnavailable, "")
	}
	return s.respond(n, system, evidence)
}

// goodLLM answers JSON prompts with a valid assessment and text prompts with a sentence.
func goodLLM(id provider.ID) *stubLLM {
	return &stubLLM{id: id, configured: true, respond: func(n int, system, evidence string) provider.Result[string] {
		if promptstyle.WantsJSON(system) {
			return provider.Success(id, validAssessmentJSON())
		}
		return provider.Success(id, "They balance each other well.")
	}}
}

func failingLLM(id provider.ID, kind provider.ErrorKind) *stubLLM {
	return &stubLLM{id: id, configured: true, respond: func(int, string, string) provider.Result[string] {
		return provider.Failure[string](id, kind, "stub")
	}}
}

type stubFace struct {
	id         provider.ID
	configured bool
	kind       provider.ErrorKind
	faces      []domain.FaceObservation
	calls      atomic.Int32
}

func (s *stubFace) ID() provider.ID  { return s.id }
func (s *stubFace) Configured() bool { return s.configured }
func (s *stubFace) DetectFaces(ctx context.Context, image []byte, maxCount int) provider.Result[[]domain.FaceObservation] {
	s.calls.Add(1)
	if !s.configured {
		return provider.Failure[[]domain.FaceObservation](s.id, provider.KindUnavailable, "")
	}
	if s.kind != provider.KindNone {
		return provider.Failure[[]domain.FaceObservation](s.id, s.kind, "stub")
	}
	return provider.Success(s.id, s.faces)
}

func face(left float64, g domain.Gender) domain.FaceObservation {
	return domain.FaceObservation{
		BoundingBox:     domain.BoundingBox{Left: left, Top: 0.2, Width: 0.2, Height: 0.3},
		EstimatedGender: g,
		EmotionScores:   map[string]float64{"calm": 0.8, "happy": 0.2},
	}
}

type stubTranscriber struct {
	id    provider.ID
	out   domain.TranscriptionResult
	kind  provider.ErrorKind
	calls atomic.Int32
}

func (s *stubTranscriber) ID() provider.ID  { return s.id }
func (s *stubTranscriber) Configured() bool { return true }
func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte) provider.Result[domain.TranscriptionResult] {
	s.calls.Add(1)
	if s.kind != provider.KindNone {
		return provider.Failure[domain.TranscriptionResult](s.id, s.kind, "stub")
	}
	return provider.Success(s.id, s.out)
}

type stubReader struct {
	id   provider.ID
	text string
	kind provider.ErrorKind
}

func (s *stubReader) ID() provider.ID  { return s.id }
func (s *stubReader) Configured() bool { return true }
func (s *stubReader) ReadDocument(ctx context.Context, data []byte, mimeType string) provider.Result[string] {
	if s.kind != provider.KindNone {
		return provider.Failure[string](s.id, s.kind, "stub")
	}
	return provider.Success(s.id, s.text)
}

// fakeTranscoder writes placeholder files instead of running ffmpeg.
type fakeTranscoder struct {
	duration  float64
	probeErr  error
	noAudio   bool
	mu        sync.Mutex
	segments  [][2]float64
	frames    []float64
}

func (f *fakeTranscoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return f.duration, f.probeErr
}

func (f *fakeTranscoder) ExtractSegment(ctx context.Context, in, out string, start, dur float64) error {
	f.mu.Lock()
	f.segments = append(f.segments, [2]float64{start, dur})
	f.mu.Unlock()
	return os.WriteFile(out, []byte("segment"), 0o600)
}

func (f *fakeTranscoder) ExtractFrame(ctx context.Context, in, out string, at float64) error {
	f.mu.Lock()
	f.frames = append(f.frames, at)
	f.mu.Unlock()
	return os.WriteFile(out, []byte("frame"), 0o600)
}

func (f *fakeTranscoder) ExtractAudio(ctx context.Context, in, out string) error {
	if f.noAudio {
		return os.ErrNotExist
	}
	return os.WriteFile(out, []byte("audio"), 0o600)
}

type memStore struct {
	mu       sync.Mutex
	analyses []domain.AnalysisRecord
	messages []domain.ChatMessage
}

func (m *memStore) CreateAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = time.Now()
	m.analyses = append(m.analyses, *rec)
	return nil
}

func (m *memStore) LatestAnalysis(ctx context.Context, sessionID string) (*domain.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.analyses) - 1; i >= 0; i-- {
		if m.analyses[i].SessionID == sessionID {
			rec := m.analyses[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetAnalysis(ctx context.Context, sessionID string, id uuid.UUID) (*domain.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.analyses {
		if r.SessionID == sessionID && r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateMessages(ctx context.Context, msgs ...*domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.messages = append(m.messages, *msg)
	}
	return nil
}

func (m *memStore) ListMessages(ctx context.Context, sessionID string, analysisID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && msg.AnalysisID != nil && *msg.AnalysisID == analysisID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = value
	return nil
}

type fixture struct {
	svc   *Service
	store *memStore
	media *fakeTranscoder
}

func newFixture(t *testing.T, adapters Adapters, opts Options) fixture {
	t.Helper()
	if opts.ScratchDir == "" {
		opts.ScratchDir = t.TempDir()
	}
	store := &memStore{}
	media := &fakeTranscoder{duration: 30}
	return fixture{
		svc:   New(nil, adapters, media, store, nil, nil, opts),
		store: store,
		media: media,
	}
}

func scratchEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

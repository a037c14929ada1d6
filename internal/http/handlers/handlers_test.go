package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/data/repos"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
	"github.com/yungbote/persona-backend/internal/provider"
)

type fakeAnalyzer struct {
	media    orchestrator.MediaRequest
	document orchestrator.DocumentRequest
	chat     orchestrator.ChatRequest
	err      error
}

func (f *fakeAnalyzer) AnalyzeMedia(ctx context.Context, req orchestrator.MediaRequest) (*orchestrator.Outcome, error) {
	f.media = req
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Outcome{AnalysisID: uuid.New(), MediaType: req.MediaType, Status: domain.AnalysisStatusComplete}, nil
}

func (f *fakeAnalyzer) AnalyzeText(ctx context.Context, req orchestrator.TextRequest) (*orchestrator.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Outcome{MediaType: domain.MediaText, Status: domain.AnalysisStatusComplete}, nil
}

func (f *fakeAnalyzer) AnalyzeDocument(ctx context.Context, req orchestrator.DocumentRequest) (*orchestrator.Outcome, error) {
	f.document = req
	return &orchestrator.Outcome{MediaType: domain.MediaDocument, Status: domain.AnalysisStatusComplete}, f.err
}

func (f *fakeAnalyzer) Chat(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatReply, error) {
	f.chat = req
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.ChatReply{Message: domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: "sure"}}, nil
}

func (f *fakeAnalyzer) Providers() []orchestrator.ProviderStatus {
	return []orchestrator.ProviderStatus{{ID: provider.OpenAI, Capability: provider.CapabilityLLM, Configured: true}}
}

// withSession stands in for the session middleware.
func withSession(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithSessionID(c.Request.Context(), id))
		c.Next()
	}
}

func serve(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func analyzeRouter(a *fakeAnalyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withSession("s1"))
	h := NewAnalyzeHandler(a)
	r.POST("/api/analyze", h.AnalyzeMedia)
	r.POST("/api/analyze/text", h.AnalyzeText)
	r.POST("/api/analyze/document", h.AnalyzeDocument)
	r.GET("/api/providers", h.Providers)
	r.POST("/api/chat", NewChatHandler(a).Chat)
	return r
}

func TestAnalyzeMedia_DataURL(t *testing.T) {
	a := &fakeAnalyzer{}
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpegbytes"))
	rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/analyze", gin.H{"media": payload, "segment_start_sec": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if string(a.media.Data) != "jpegbytes" || a.media.MediaType != domain.MediaImage || a.media.SessionID != "s1" {
		t.Fatalf("request = %+v", a.media)
	}
	if a.media.SegmentStartSec != 2 {
		t.Fatalf("segment start = %v", a.media.SegmentStartSec)
	}
}

func TestAnalyzeMedia_BadPayloads(t *testing.T) {
	cases := map[string]any{
		"missing media": gin.H{},
		"not base64":    gin.H{"media": "%%%"},
		"plain data":    gin.H{"media": "data:image/png,abc"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, analyzeRouter(&fakeAnalyzer{}), http.MethodPost, "/api/analyze", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", rec.Code)
			}
		})
	}
}

func TestAnalyze_ErrorEnvelope(t *testing.T) {
	a := &fakeAnalyzer{err: &orchestrator.Error{
		Kind:          provider.KindValidationFailed,
		Message:       orchestrator.RegenerateMessage,
		MissingFields: []string{"openness"},
	}}
	rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/analyze/text", gin.H{"text": "hello world"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var body struct {
		Error         string   `json:"error"`
		Code          string   `json:"code"`
		MissingFields []string `json:"missing_fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "validation_failed" || body.Error != orchestrator.RegenerateMessage || body.MissingFields[0] != "openness" {
		t.Fatalf("body = %+v", body)
	}

	a.err = &orchestrator.Error{Kind: provider.KindUnavailable, Message: "no language model provider is configured"}
	if rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/analyze/text", gin.H{"text": "hi"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAnalyzeDocument_PassesMime(t *testing.T) {
	a := &fakeAnalyzer{}
	doc := base64.StdEncoding.EncodeToString([]byte("hello"))
	rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/analyze/document", gin.H{"document": doc, "file_name": "a.txt"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if a.document.FileName != "a.txt" || string(a.document.Data) != "hello" {
		t.Fatalf("document = %+v", a.document)
	}
}

func TestChat(t *testing.T) {
	a := &fakeAnalyzer{}
	id := uuid.New()
	rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/chat", gin.H{"message": "why?", "analysis_id": id.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if a.chat.AnalysisID == nil || *a.chat.AnalysisID != id {
		t.Fatalf("analysis id not forwarded: %+v", a.chat)
	}
	if rec := serve(t, analyzeRouter(a), http.MethodPost, "/api/chat", gin.H{"message": "x", "analysis_id": "nope"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestProviders(t *testing.T) {
	rec := serve(t, analyzeRouter(&fakeAnalyzer{}), http.MethodGet, "/api/providers", nil)
	var body struct {
		Providers []orchestrator.ProviderStatus `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Providers) != 1 || body.Providers[0].ID != provider.OpenAI {
		t.Fatalf("providers = %+v", body.Providers)
	}
}

type fakeAnalysisStore struct {
	recs   []*domain.AnalysisRecord
	marked []uuid.UUID
}

func (f *fakeAnalysisStore) ListAnalyses(ctx context.Context, sessionID string, limit int) ([]*domain.AnalysisRecord, error) {
	return f.recs, nil
}

func (f *fakeAnalysisStore) MarkDownloaded(ctx context.Context, sessionID string, id uuid.UUID) error {
	for _, r := range f.recs {
		if r.ID == id {
			f.marked = append(f.marked, id)
			return nil
		}
	}
	return repos.ErrNotFound
}

func TestAnalyses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &domain.AnalysisRecord{ID: uuid.New(), SessionID: "s1", MediaType: domain.MediaText, Status: domain.AnalysisStatusComplete}
	store := &fakeAnalysisStore{recs: []*domain.AnalysisRecord{rec}}
	h := NewAnalysesHandler(store)
	r := gin.New()
	r.Use(withSession("s1"))
	r.GET("/api/analyses", h.List)
	r.POST("/api/analyses/:id/downloaded", h.MarkDownloaded)

	if res := serve(t, r, http.MethodGet, "/api/analyses", nil); res.Code != http.StatusOK || !bytes.Contains(res.Body.Bytes(), []byte(rec.ID.String())) {
		t.Fatalf("list status=%d body=%s", res.Code, res.Body.String())
	}
	if res := serve(t, r, http.MethodPost, "/api/analyses/"+rec.ID.String()+"/downloaded", nil); res.Code != http.StatusNoContent {
		t.Fatalf("mark status=%d", res.Code)
	}
	if res := serve(t, r, http.MethodPost, "/api/analyses/"+uuid.NewString()+"/downloaded", nil); res.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", res.Code)
	}
}

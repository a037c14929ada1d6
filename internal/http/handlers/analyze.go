package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/http/response"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
)

// Analyzer is the orchestrator surface the HTTP layer needs.
type Analyzer interface {
	AnalyzeMedia(ctx context.Context, req orchestrator.MediaRequest) (*orchestrator.Outcome, error)
	AnalyzeText(ctx context.Context, req orchestrator.TextRequest) (*orchestrator.Outcome, error)
	AnalyzeDocument(ctx context.Context, req orchestrator.DocumentRequest) (*orchestrator.Outcome, error)
	Chat(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatReply, error)
	Providers() []orchestrator.ProviderStatus
}

type AnalyzeHandler struct {
	analyzer Analyzer
}

func NewAnalyzeHandler(a Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

type analyzeMediaReq struct {
	// Media is base64, optionally as a data URL.
	Media              string  `json:"media" binding:"required"`
	MediaType          string  `json:"media_type"`
	SegmentStartSec    float64 `json:"segment_start_sec"`
	SegmentDurationSec float64 `json:"segment_duration_sec"`
	MaxPeople          int     `json:"max_people"`
}

// POST /api/analyze
func (h *AnalyzeHandler) AnalyzeMedia(c *gin.Context) {
	var req analyzeMediaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, declared, err := decodePayload(req.Media)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_media", err)
		return
	}
	mediaType := domain.MediaType(strings.ToLower(strings.TrimSpace(req.MediaType)))
	if mediaType == "" {
		mediaType = mediaTypeFromMIME(declared)
	}
	out, err := h.analyzer.AnalyzeMedia(c.Request.Context(), orchestrator.MediaRequest{
		SessionID:          ctxutil.SessionID(c.Request.Context()),
		Data:               data,
		MediaType:          mediaType,
		SegmentStartSec:    req.SegmentStartSec,
		SegmentDurationSec: req.SegmentDurationSec,
		MaxPeople:          req.MaxPeople,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

type analyzeTextReq struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/analyze/text
func (h *AnalyzeHandler) AnalyzeText(c *gin.Context) {
	var req analyzeTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.analyzer.AnalyzeText(c.Request.Context(), orchestrator.TextRequest{
		SessionID: ctxutil.SessionID(c.Request.Context()),
		Text:      req.Text,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

type analyzeDocumentReq struct {
	Document string `json:"document" binding:"required"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// POST /api/analyze/document
func (h *AnalyzeHandler) AnalyzeDocument(c *gin.Context) {
	var req analyzeDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, declared, err := decodePayload(req.Document)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document", err)
		return
	}
	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = declared
	}
	out, err := h.analyzer.AnalyzeDocument(c.Request.Context(), orchestrator.DocumentRequest{
		SessionID: ctxutil.SessionID(c.Request.Context()),
		Data:      data,
		MimeType:  mimeType,
		FileName:  req.FileName,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/providers
func (h *AnalyzeHandler) Providers(c *gin.Context) {
	response.RespondOK(c, gin.H{"providers": h.analyzer.Providers()})
}

// decodePayload accepts plain base64 or a data URL and returns the bytes and any declared MIME type.
func decodePayload(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	declared := ""
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("data URL must be base64 encoded")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, rerr := base64.RawStdEncoding.DecodeString(s); rerr == nil {
			data, err = raw, nil
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("payload is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("payload is empty")
	}
	return data, declared, nil
}

func mediaTypeFromMIME(m string) domain.MediaType {
	switch {
	case strings.HasPrefix(m, "image/"):
		return domain.MediaImage
	case strings.HasPrefix(m, "video/"):
		return domain.MediaVideo
	}
	return ""
}

func bindError(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", err)
		return
	}
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}

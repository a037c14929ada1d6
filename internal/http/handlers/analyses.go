package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/data/repos"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/http/response"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/apierr"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
)

// AnalysisStore is the read side of stored analyses.
type AnalysisStore interface {
	ListAnalyses(ctx context.Context, sessionID string, limit int) ([]*domain.AnalysisRecord, error)
	MarkDownloaded(ctx context.Context, sessionID string, id uuid.UUID) error
}

type AnalysesHandler struct {
	store AnalysisStore
}

func NewAnalysesHandler(store AnalysisStore) *AnalysesHandler {
	return &AnalysesHandler{store: store}
}

// GET /api/analyses?limit=50
func (h *AnalysesHandler) List(c *gin.Context) {
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	recs, err := h.store.ListAnalyses(c.Request.Context(), ctxutil.SessionID(c.Request.Context()), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out := make([]*orchestrator.Outcome, 0, len(recs))
	for _, rec := range recs {
		o, err := orchestrator.OutcomeFromRecord(rec)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		out = append(out, o)
	}
	response.RespondOK(c, gin.H{"analyses": out})
}

// POST /api/analyses/:id/downloaded
func (h *AnalysesHandler) MarkDownloaded(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_analysis_id", err))
		return
	}
	err = h.store.MarkDownloaded(c.Request.Context(), ctxutil.SessionID(c.Request.Context()), id)
	if errors.Is(err, repos.ErrNotFound) {
		response.RespondErr(c, apierr.NotFound(err))
		return
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/http/response"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
)

type ChatHandler struct {
	analyzer Analyzer
}

func NewChatHandler(a Analyzer) *ChatHandler {
	return &ChatHandler{analyzer: a}
}

type chatReq struct {
	Message    string `json:"message" binding:"required"`
	AnalysisID string `json:"analysis_id"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	creq := orchestrator.ChatRequest{
		SessionID: ctxutil.SessionID(c.Request.Context()),
		Message:   req.Message,
	}
	if v := strings.TrimSpace(req.AnalysisID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_analysis_id", err)
			return
		}
		creq.AnalysisID = &id
	}
	reply, err := h.analyzer.Chat(c.Request.Context(), creq)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, reply)
}

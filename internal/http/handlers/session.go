package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/persona-backend/internal/http/middleware"
	"github.com/yungbote/persona-backend/internal/http/response"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// SessionClearer deletes everything stored for a session.
type SessionClearer interface {
	ClearSession(ctx context.Context, sessionID string) error
}

type SessionHandler struct {
	log      *logger.Logger
	sessions *middleware.Sessions
	store    SessionClearer
}

func NewSessionHandler(log *logger.Logger, sessions *middleware.Sessions, store SessionClearer) *SessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: sessions, store: store}
}

// POST /api/session
func (h *SessionHandler) Create(c *gin.Context) {
	sessionID, token, expires, err := h.sessions.Issue()
	if errors.Is(err, middleware.ErrSessionsDisabled) {
		response.RespondError(c, http.StatusNotImplemented, "sessions_disabled", err)
		return
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": sessionID, "token": token, "expires_at": expires})
}

// DELETE /api/session
func (h *SessionHandler) Clear(c *gin.Context) {
	sessionID := ctxutil.SessionID(c.Request.Context())
	if err := h.store.ClearSession(c.Request.Context(), sessionID); err != nil {
		response.RespondErr(c, err)
		return
	}
	h.log.Info("session cleared", "session_id", sessionID)
	c.Status(http.StatusNoContent)
}

package app

import (
	"github.com/yungbote/persona-backend/internal/config"
	httpMW "github.com/yungbote/persona-backend/internal/http/middleware"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type Middleware struct {
	Sessions *httpMW.Sessions
}

func wireMiddleware(log *logger.Logger, cfg *config.Config) Middleware {
	log.Info("Wiring middleware...")
	sessions := httpMW.NewSessions(log, cfg.Session)
	if !sessions.TokensEnabled() {
		log.Warn("session secret not set, clients identify with X-Session-ID")
	}
	return Middleware{Sessions: sessions}
}

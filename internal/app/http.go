package app

import (
	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/http"
	httpH "github.com/yungbote/persona-backend/internal/http/handlers"
	"github.com/yungbote/persona-backend/internal/observability"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Analyze  *httpH.AnalyzeHandler
	Chat     *httpH.ChatHandler
	Session  *httpH.SessionHandler
	Analyses *httpH.AnalysesHandler
}

func wireHandlers(log *logger.Logger, svc *orchestrator.Service, storage *Storage, mw Middleware) Handlers {
	log.Info("Wiring handlers...")
	deps := map[string]httpH.Pinger{"database": storage.DB}
	if storage.Redis != nil {
		deps["redis"] = storage.Redis
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(deps),
		Analyze:  httpH.NewAnalyzeHandler(svc),
		Chat:     httpH.NewChatHandler(svc),
		Session:  httpH.NewSessionHandler(log, mw.Sessions, storage.Store),
		Analyses: httpH.NewAnalysesHandler(storage.Store),
	}
}

func wireServer(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, handlers Handlers, mw Middleware) *http.Server {
	return http.NewServer(cfg.HTTP.Addr, cfg.HTTP.ReadHeaderTimeout.Duration, http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		Sessions:        mw.Sessions,
		AnalyzeHandler:  handlers.Analyze,
		ChatHandler:     handlers.Chat,
		SessionHandler:  handlers.Session,
		AnalysesHandler: handlers.Analyses,
		HealthHandler:   handlers.Health,
	})
}

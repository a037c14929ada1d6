package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/persona-backend/internal/http/handlers"
	httpMW "github.com/yungbote/persona-backend/internal/http/middleware"
	"github.com/yungbote/persona-backend/internal/observability"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	Metrics         *observability.Metrics
	ServiceName     string
	CORSOrigins     []string
	MaxRequestBytes int64

	Sessions *httpMW.Sessions

	AnalyzeHandler  *httpH.AnalyzeHandler
	ChatHandler     *httpH.ChatHandler
	SessionHandler  *httpH.SessionHandler
	AnalysesHandler *httpH.AnalysesHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Session issue (public)
		if cfg.SessionHandler != nil {
			api.POST("/session", cfg.SessionHandler.Create)
		}
		if cfg.AnalyzeHandler != nil {
			api.GET("/providers", cfg.AnalyzeHandler.Providers)
		}
	}

	protected := api.Group("/")
	{
		if cfg.Sessions != nil {
			protected.Use(cfg.Sessions.RequireSession())
		}

		if cfg.SessionHandler != nil {
			protected.DELETE("/session", cfg.SessionHandler.Clear)
		}

		// Analysis
		if cfg.AnalyzeHandler != nil {
			protected.POST("/analyze", cfg.AnalyzeHandler.AnalyzeMedia)
			protected.POST("/analyze/text", cfg.AnalyzeHandler.AnalyzeText)
			protected.POST("/analyze/document", cfg.AnalyzeHandler.AnalyzeDocument)
		}

		// Follow-up chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat", cfg.ChatHandler.Chat)
		}

		// Stored analyses
		if cfg.AnalysesHandler != nil {
			protected.GET("/analyses", cfg.AnalysesHandler.List)
			protected.POST("/analyses/:id/downloaded", cfg.AnalysesHandler.MarkDownloaded)
		}
	}

	return r
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/http"
	"github.com/yungbote/persona-backend/internal/observability"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/localmedia"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/provider"
)

const serviceName = "persona-backend"

type App struct {
	Log          *logger.Logger
	Cfg          *config.Config
	Metrics      *observability.Metrics
	Clients      *Clients
	Storage      *Storage
	Orchestrator *orchestrator.Service
	Server       *http.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := Wire(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// Wire builds the service from an already loaded config. The HTTP server is built but not started.
func Wire(ctx context.Context, log *logger.Logger, cfg *config.Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})
	metrics := observability.NewMetrics()

	clients, err := wireClients(ctx, log, cfg, provider.NewMetrics(metrics.Registerer()))
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	storage, err := wireStorage(ctx, log, cfg)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	media := localmedia.New(log, cfg.Media)
	if err := media.AssertReady(); err != nil {
		log.Warn("video analysis will fail until ffmpeg is installed", "error", err)
	}
	svc := orchestrator.New(log, clients.Adapters, media, storage.Store, storage.Cache(), metrics, orchestrator.OptionsFromConfig(cfg))
	for _, st := range svc.Providers() {
		log.Info("provider wired", "provider", string(st.ID), "capability", string(st.Capability), "configured", st.Configured)
	}
	if !provider.AnyConfigured(clients.Adapters.LLM) {
		log.Warn("no language model provider configured, analyses will be rejected")
	}

	mw := wireMiddleware(log, cfg)
	handlers := wireHandlers(log, svc, storage, mw)
	server := wireServer(log, cfg, metrics, handlers, mw)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Storage:      storage,
		Orchestrator: svc,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.Log.Info("shutting down")
	timeout := a.Cfg.HTTP.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	a.Storage.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

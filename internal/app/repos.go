package app

import (
	"context"
	"fmt"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/data/cache"
	"github.com/yungbote/persona-backend/internal/data/db"
	"github.com/yungbote/persona-backend/internal/data/repos"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type Storage struct {
	DB    *db.Service
	Store *repos.Store
	Redis *cache.Redis
}

func wireStorage(ctx context.Context, log *logger.Logger, cfg *config.Config) (*Storage, error) {
	log.Info("Wiring storage...")
	svc, err := db.Open(log, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	rc, err := cache.NewRedis(ctx, log, cfg.Redis)
	if err != nil {
		// Run uncached when redis is unreachable.
		log.Warn("result cache disabled", "error", err)
		rc = nil
	}
	return &Storage{DB: svc, Store: repos.NewStore(svc.DB(), log), Redis: rc}, nil
}

// Cache returns the redis cache as an orchestrator.Cache, or nil when disabled.
func (s *Storage) Cache() orchestrator.Cache {
	if s == nil || s.Redis == nil {
		return nil
	}
	return s.Redis
}

func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

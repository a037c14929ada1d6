package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/dbctx"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// Store is the persistence collaborator of the orchestrator and the HTTP handlers.
type Store struct {
	db       *gorm.DB
	Analyses AnalysisRepo
	Messages ChatMessageRepo
}

func NewStore(db *gorm.DB, log *logger.Logger) *Store {
	return &Store{
		db:       db,
		Analyses: NewAnalysisRepo(db, log),
		Messages: NewChatMessageRepo(db, log),
	}
}

func (s *Store) CreateAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error {
	return s.Analyses.Create(dbctx.From(ctx), rec)
}

func (s *Store) LatestAnalysis(ctx context.Context, sessionID string) (*domain.AnalysisRecord, error) {
	return s.Analyses.Latest(dbctx.From(ctx), sessionID)
}

func (s *Store) GetAnalysis(ctx context.Context, sessionID string, id uuid.UUID) (*domain.AnalysisRecord, error) {
	return s.Analyses.Get(dbctx.From(ctx), sessionID, id)
}

func (s *Store) ListAnalyses(ctx context.Context, sessionID string, limit int) ([]*domain.AnalysisRecord, error) {
	return s.Analyses.ListBySession(dbctx.From(ctx), sessionID, limit)
}

func (s *Store) MarkDownloaded(ctx context.Context, sessionID string, id uuid.UUID) error {
	return s.Analyses.MarkDownloaded(dbctx.From(ctx), sessionID, id)
}

func (s *Store) CreateMessages(ctx context.Context, msgs ...*domain.ChatMessage) error {
	return s.Messages.Create(dbctx.From(ctx), msgs)
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, analysisID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	return s.Messages.ListRecent(dbctx.From(ctx), sessionID, analysisID, limit)
}

// ClearSession removes the session's analyses and messages together.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.Messages.DeleteBySession(dbc, sessionID); err != nil {
			return err
		}
		_, err := s.Analyses.DeleteBySession(dbc, sessionID)
		return err
	})
}

package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/dbctx"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type ChatMessageRepo interface {
	Create(dbc dbctx.Context, msgs []*domain.ChatMessage) error
	// ListRecent returns the newest limit messages of one analysis thread, oldest first.
	ListRecent(dbc dbctx.Context, sessionID string, analysisID uuid.UUID, limit int) ([]domain.ChatMessage, error)
	DeleteBySession(dbc dbctx.Context, sessionID string) (int64, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

// Create inserts msgs in one transaction. Timestamps are spaced by a microsecond so
// messages from the same exchange keep their order.
func (r *chatMessageRepo) Create(dbc dbctx.Context, msgs []*domain.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i, m := range msgs {
		if m == nil {
			return fmt.Errorf("nil chat message at %d", i)
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
	}
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&msgs).Error
	})
}

func (r *chatMessageRepo) ListRecent(dbc dbctx.Context, sessionID string, analysisID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.ChatMessage
	if err := dbc.DB(r.db).
		Where("session_id = ? AND analysis_id = ?", sessionID, analysisID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) DeleteBySession(dbc dbctx.Context, sessionID string) (int64, error) {
	res := dbc.DB(r.db).Where("session_id = ?", sessionID).Delete(&domain.ChatMessage{})
	return res.RowsAffected, res.Error
}

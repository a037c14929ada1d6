package repos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/dbctx"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// ErrNotFound is returned by MarkDownloaded when the analysis does not belong to the session.
var ErrNotFound = errors.New("record not found")

type AnalysisRepo interface {
	Create(dbc dbctx.Context, rec *domain.AnalysisRecord) error
	// Latest returns nil, nil when the session has no analyses.
	Latest(dbc dbctx.Context, sessionID string) (*domain.AnalysisRecord, error)
	// Get returns nil, nil when nothing matches.
	Get(dbc dbctx.Context, sessionID string, id uuid.UUID) (*domain.AnalysisRecord, error)
	ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*domain.AnalysisRecord, error)
	MarkDownloaded(dbc dbctx.Context, sessionID string, id uuid.UUID) error
	DeleteBySession(dbc dbctx.Context, sessionID string) (int64, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &analysisRepo{db: db, log: baseLog.With("repo", "AnalysisRepo")}
}

func (r *analysisRepo) Create(dbc dbctx.Context, rec *domain.AnalysisRecord) error {
	if rec == nil {
		return fmt.Errorf("nil analysis record")
	}
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("missing session_id")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return dbc.DB(r.db).Create(rec).Error
}

func (r *analysisRepo) Latest(dbc dbctx.Context, sessionID string) (*domain.AnalysisRecord, error) {
	var out []*domain.AnalysisRecord
	if err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *analysisRepo) Get(dbc dbctx.Context, sessionID string, id uuid.UUID) (*domain.AnalysisRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.AnalysisRecord
	if err := dbc.DB(r.db).
		Where("session_id = ? AND id = ?", sessionID, id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *analysisRepo) ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.AnalysisRecord
	if err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDownloaded is the only mutation an analysis receives after creation.
func (r *analysisRepo) MarkDownloaded(dbc dbctx.Context, sessionID string, id uuid.UUID) error {
	res := dbc.DB(r.db).
		Model(&domain.AnalysisRecord{}).
		Where("session_id = ? AND id = ?", sessionID, id).
		Updates(map[string]any{"downloaded": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBySession soft-deletes every analysis of a session when the session is cleared.
func (r *analysisRepo) DeleteBySession(dbc dbctx.Context, sessionID string) (int64, error) {
	res := dbc.DB(r.db).Where("session_id = ?", sessionID).Delete(&domain.AnalysisRecord{})
	return res.RowsAffected, res.Error
}

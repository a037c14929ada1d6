package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/persona-backend/internal/domain"
)

// SeedAnalysis inserts a completed image analysis for sessionID created at at.
func SeedAnalysis(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID string, at time.Time) *domain.AnalysisRecord {
	tb.Helper()
	rec := &domain.AnalysisRecord{
		ID:            uuid.New(),
		SessionID:     sessionID,
		MediaType:     domain.MediaImage,
		Status:        domain.AnalysisStatusComplete,
		ProvidersUsed: datatypes.JSON(`["facepp","openai"]`),
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	return rec
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, rec *domain.AnalysisRecord, role, content string) *domain.ChatMessage {
	tb.Helper()
	id := rec.ID
	m := &domain.ChatMessage{
		ID:         uuid.New(),
		SessionID:  rec.SessionID,
		AnalysisID: &id,
		Role:       role,
		Content:    content,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

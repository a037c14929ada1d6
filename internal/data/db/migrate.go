package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/persona-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.AnalysisRecord{},
		&domain.ChatMessage{},
	)
}

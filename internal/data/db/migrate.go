package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&feed.ContentItem{},
		&feed.TopicStat{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

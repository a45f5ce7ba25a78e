package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/data/repos/content"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type ContentItemRepo = content.ContentItemRepo
type TopicStatRepo = content.TopicStatRepo

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return content.NewContentItemRepo(db, baseLog)
}

func NewTopicStatRepo(db *gorm.DB, baseLog *logger.Logger) TopicStatRepo {
	return content.NewTopicStatRepo(db, baseLog)
}

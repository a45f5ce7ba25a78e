package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type Repos struct {
	ContentItem repos.ContentItemRepo
	TopicStat   repos.TopicStatRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ContentItem: repos.NewContentItemRepo(db, log),
		TopicStat:   repos.NewTopicStatRepo(db, log),
	}
}

package app

import (
	"github.com/yungbote/mindfeed-backend/internal/http/handlers"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type Handlers struct {
	Feed    *handlers.FeedHandler
	Content *handlers.ContentHandler
	Health  *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Feed:    handlers.NewFeedHandler(services.Feed),
		Content: handlers.NewContentHandler(services.Feed),
		Health:  handlers.NewHealthHandler(services.Feed),
	}
}

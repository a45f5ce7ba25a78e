package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mindfeed-backend/internal/services"
)

type HealthHandler struct {
	feed services.FeedService
}

func NewHealthHandler(feed services.FeedService) *HealthHandler { return &HealthHandler{feed: feed} }

// GET /healthcheck. A down store only degrades the service, so it still reports 200.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	report := h.feed.Health(c.Request.Context())
	status := http.StatusOK
	if !report.Database {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ok": report.OK(), "store": report.Store, "database": report.Database})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/http/response"
	"github.com/yungbote/mindfeed-backend/internal/services"
)

type ContentHandler struct {
	feed services.FeedService
}

func NewContentHandler(feed services.FeedService) *ContentHandler {
	return &ContentHandler{feed: feed}
}

// GET /api/content?type=&topic=&language=&limit=
func (h *ContentHandler) GetContent(c *gin.Context) {
	t, ok := feed.ParseContentType(c.Query("type"))
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_content_type", errUnknownType(c.Query("type")))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", errBadLimit(raw))
			return
		}
		limit = n
	}
	res, err := h.feed.GetContent(c.Request.Context(), services.ContentQuery{
		Type:     t,
		Topic:    c.Query("topic"),
		Language: c.Query("language"),
		Limit:    limit,
	})
	if err != nil {
		response.RespondAPIError(c, err, "content_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/content/daily-quote?language=
func (h *ContentHandler) DailyQuote(c *gin.Context) {
	q, err := h.feed.DailyQuote(c.Request.Context(), c.Query("language"))
	if err != nil {
		response.RespondAPIError(c, err, "daily_quote_failed")
		return
	}
	response.RespondOK(c, gin.H{"quote": q})
}

// GET /api/topics/popular?language=
func (h *ContentHandler) PopularTopics(c *gin.Context) {
	top, err := h.feed.PopularTopics(c.Request.Context(), c.Query("language"))
	if err != nil {
		response.RespondAPIError(c, err, "popular_topics_failed")
		return
	}
	response.RespondOK(c, gin.H{"topics": top})
}

// GET /api/videos/quota
func (h *ContentHandler) VideoQuota(c *gin.Context) {
	response.RespondOK(c, h.feed.VideoQuota(c.Request.Context()))
}

// POST /api/videos/quota/reset
func (h *ContentHandler) ResetVideoQuota(c *gin.Context) {
	if err := h.feed.ResetVideoQuota(c.Request.Context()); err != nil {
		response.RespondAPIError(c, err, "video_quota_reset_failed")
		return
	}
	response.RespondOK(c, h.feed.VideoQuota(c.Request.Context()))
}

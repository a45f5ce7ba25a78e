package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mindfeed-backend/internal/http/response"
	"github.com/yungbote/mindfeed-backend/internal/platform/ctxutil"
	"github.com/yungbote/mindfeed-backend/internal/services"
)

type FeedHandler struct {
	feed services.FeedService
}

func NewFeedHandler(feed services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

type submitMessageRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	Language string `json:"language"`
}

// POST /api/messages
func (h *FeedHandler) SubmitMessage(c *gin.Context) {
	var req submitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tagUser(c, req.UserID)
	res, err := h.feed.SubmitMessage(c.Request.Context(), services.SubmitMessageInput{
		UserID:   req.UserID,
		Text:     req.Text,
		Mode:     req.Mode,
		Language: req.Language,
	})
	if err != nil {
		response.RespondAPIError(c, err, "submit_message_failed")
		return
	}
	if res.GenerationTaskID != "" {
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			rd.TaskID = res.GenerationTaskID
		}
	}
	response.RespondOK(c, res)
}

// GET /api/tasks/:id
func (h *FeedHandler) GetTaskStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		rd.TaskID = id
	}
	rec, err := h.feed.GetTaskStatus(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "task_status_failed")
		return
	}
	response.RespondOK(c, rec)
}

// GET /api/users/:id/topic
func (h *FeedHandler) GetUserTopic(c *gin.Context) {
	userID := c.Param("id")
	tagUser(c, userID)
	rec, err := h.feed.GetUserTopic(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err, "user_topic_failed")
		return
	}
	response.RespondOK(c, rec)
}

// POST /api/users/:id/topic/refresh
func (h *FeedHandler) RefreshUserTopic(c *gin.Context) {
	userID := c.Param("id")
	tagUser(c, userID)
	if err := h.feed.RefreshUserTopic(c.Request.Context(), userID); err != nil {
		response.RespondAPIError(c, err, "user_topic_refresh_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func tagUser(c *gin.Context, userID string) {
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		rd.UserID = userID
	}
}

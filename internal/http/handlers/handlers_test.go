package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/generation"
	"github.com/yungbote/mindfeed-backend/internal/platform/apierr"
	"github.com/yungbote/mindfeed-backend/internal/scheduler"
	"github.com/yungbote/mindfeed-backend/internal/services"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

type stubFeed struct {
	lastSubmit services.SubmitMessageInput
	lastQuery  services.ContentQuery
	submitErr  error
	health     services.HealthReport
	resetCalls int
}

func (s *stubFeed) SubmitMessage(ctx context.Context, in services.SubmitMessageInput) (*services.SubmitMessageResult, error) {
	s.lastSubmit = in
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &services.SubmitMessageResult{ReplyRef: "r1", Topic: "sleep", Decision: topic.DecisionNew, GenerationTaskID: "t1"}, nil
}

func (s *stubFeed) GetTaskStatus(ctx context.Context, id string) (*feed.TaskRecord, error) {
	if id == "t1" {
		return &feed.TaskRecord{TaskID: id, Status: feed.TaskPending}, nil
	}
	return &feed.TaskRecord{TaskID: id, Status: feed.TaskUnknown}, nil
}

func (s *stubFeed) GetUserTopic(ctx context.Context, userID string) (*feed.UserTopicRecord, error) {
	return &feed.UserTopicRecord{UserID: userID, Topic: "sleep", Version: 2}, nil
}

func (s *stubFeed) RefreshUserTopic(ctx context.Context, userID string) error { return nil }

func (s *stubFeed) GetContent(ctx context.Context, q services.ContentQuery) (*services.ContentResult, error) {
	s.lastQuery = q
	it := feed.NewContentItem(q.Type, q.Topic, "en")
	return &services.ContentResult{Items: []feed.ContentItem{it}, Source: services.SourceCache}, nil
}

func (s *stubFeed) DailyQuote(ctx context.Context, language string) (*feed.ContentItem, error) {
	return nil, apierr.NotFound("no_quotes", generation.ErrNoQuotes)
}

func (s *stubFeed) PopularTopics(ctx context.Context, language string) ([]scheduler.PopularTopic, error) {
	return []scheduler.PopularTopic{{Topic: "sleep", Frequency: 3}}, nil
}

func (s *stubFeed) VideoQuota(ctx context.Context) generation.VideoQuota {
	return generation.VideoQuota{Exceeded: s.resetCalls == 0}
}

func (s *stubFeed) ResetVideoQuota(ctx context.Context) error {
	s.resetCalls++
	return nil
}

func (s *stubFeed) Health(ctx context.Context) services.HealthReport { return s.health }

func newTestEngine(svc services.FeedService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fh := NewFeedHandler(svc)
	ch := NewContentHandler(svc)
	r.POST("/api/messages", fh.SubmitMessage)
	r.GET("/api/tasks/:id", fh.GetTaskStatus)
	r.GET("/api/users/:id/topic", fh.GetUserTopic)
	r.GET("/api/content", ch.GetContent)
	r.GET("/api/content/daily-quote", ch.DailyQuote)
	r.GET("/api/topics/popular", ch.PopularTopics)
	r.POST("/api/videos/quota/reset", ch.ResetVideoQuota)
	r.GET("/healthcheck", NewHealthHandler(svc).HealthCheck)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSubmitMessage(t *testing.T) {
	svc := &stubFeed{}
	r := newTestEngine(svc)

	rec := do(r, http.MethodPost, "/api/messages", `{"user_id":"u1","text":"I can't sleep","language":"en"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "t1", body["generation_task_id"])
	assert.Equal(t, "new", body["decision"])
	assert.Equal(t, "u1", svc.lastSubmit.UserID)

	rec = do(r, http.MethodPost, "/api/messages", `{"text":"no user"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestSubmitMessageHidesInternalErrors(t *testing.T) {
	r := newTestEngine(&stubFeed{submitErr: errors.New("redis: secret connection string")})
	rec := do(r, http.MethodPost, "/api/messages", `{"user_id":"u1","text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), "submit_message_failed")
}

func TestGetTaskStatus(t *testing.T) {
	r := newTestEngine(&stubFeed{})
	rec := do(r, http.MethodGet, "/api/tasks/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = do(r, http.MethodGet, "/api/tasks/other", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unknown"`)
}

func TestGetContentValidatesQuery(t *testing.T) {
	svc := &stubFeed{}
	r := newTestEngine(svc)

	rec := do(r, http.MethodGet, "/api/content?type=video&topic=sleep&language=ru&limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ContentQuery{Type: feed.ContentVideo, Topic: "sleep", Language: "ru", Limit: 3}, svc.lastQuery)
	assert.Contains(t, rec.Body.String(), `"source":"cache"`)

	rec = do(r, http.MethodGet, "/api/content?type=podcast", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_content_type")

	rec = do(r, http.MethodGet, "/api/content?type=quote&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyQuoteNotFound(t *testing.T) {
	r := newTestEngine(&stubFeed{})
	rec := do(r, http.MethodGet, "/api/content/daily-quote?language=en", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_quotes")
}

func TestVideoQuotaReset(t *testing.T) {
	svc := &stubFeed{}
	r := newTestEngine(svc)
	rec := do(r, http.MethodPost, "/api/videos/quota/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.resetCalls)
	assert.Contains(t, rec.Body.String(), `"exceeded":false`)
}

func TestHealthCheck(t *testing.T) {
	svc := &stubFeed{health: services.HealthReport{Store: false, Database: true}}
	r := newTestEngine(svc)
	rec := do(r, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":false`)

	svc.health = services.HealthReport{Store: true, Database: false}
	rec = do(r, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package feedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.NewNop(), Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client(), MaxRetries: 2})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var fastPoll = tasks.PollPolicy{Interval: time.Millisecond, MaxAttempts: 5}

func TestSubmitMessage(t *testing.T) {
	var got MessageRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, MessageResponse{ReplyRef: "r", Decision: "new", GenerationTaskID: "t1"})
	}))
	res, err := c.SubmitMessage(context.Background(), MessageRequest{UserID: "u1", Text: "hello", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "t1", res.GenerationTaskID)
	assert.Equal(t, "u1", got.UserID)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"message": "busy"}})
			return
		}
		writeJSON(w, http.StatusOK, feed.TaskRecord{TaskID: "t1", Status: feed.TaskPending})
	}))
	rec, err := c.TaskStatus(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, feed.TaskPending, rec.Status)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "bad type", "code": "invalid_content_type"}})
	}))
	_, err := c.Content(context.Background(), "podcast", "", "", 0)
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, "invalid_content_type", he.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAwaitContentCompleted(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeJSON(w, http.StatusOK, feed.TaskRecord{TaskID: "t1", Status: feed.TaskPending})
			return
		}
		writeJSON(w, http.StatusOK, feed.TaskRecord{
			TaskID: "t1",
			Status: feed.TaskCompleted,
			Result: &feed.TaskResult{
				Items:        []feed.ContentItem{feed.NewContentItem(feed.ContentQuote, "sleep", "en")},
				MissingTypes: []feed.ContentType{feed.ContentVideo},
			},
		})
	})
	c := newTestClient(t, mux)

	res, err := c.AwaitContent(context.Background(), AwaitRequest{TaskID: "t1", Topic: "sleep", Policy: fastPoll})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, []feed.ContentType{feed.ContentVideo}, res.Missing)
	assert.EqualValues(t, 3, polls.Load())
}

func TestAwaitContentFallsBackToCachedContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, feed.TaskRecord{TaskID: "t1", Status: feed.TaskPending})
	})
	mux.HandleFunc("/api/content", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sleep", r.URL.Query().Get("topic"))
		if r.URL.Query().Get("type") == string(feed.ContentArticle) {
			writeJSON(w, http.StatusOK, ContentResponse{
				Items:  []feed.ContentItem{feed.NewContentItem(feed.ContentArticle, "sleep", "en")},
				Source: "durable",
			})
			return
		}
		writeJSON(w, http.StatusOK, ContentResponse{Items: []feed.ContentItem{}, Source: "none"})
	})
	c := newTestClient(t, mux)

	res, err := c.AwaitContent(context.Background(), AwaitRequest{TaskID: "t1", Topic: "sleep", Language: "en", Policy: fastPoll})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Len(t, res.Items, 1)
	assert.ElementsMatch(t, []feed.ContentType{feed.ContentQuote, feed.ContentVideo}, res.Missing)
}

func TestAwaitContentUnknownTask(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/gone", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, feed.TaskRecord{TaskID: "gone", Status: feed.TaskUnknown})
	})
	mux.HandleFunc("/api/content", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ContentResponse{Items: []feed.ContentItem{feed.NewContentItem(feed.ContentQuote, "x", "en")}})
	})
	c := newTestClient(t, mux)
	res, err := c.AwaitContent(context.Background(), AwaitRequest{
		TaskID: "gone", Topic: "x", Types: []feed.ContentType{feed.ContentQuote}, Policy: fastPoll,
	})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Len(t, res.Items, 1)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(logger.NewNop(), Config{})
	assert.Error(t, err)
}

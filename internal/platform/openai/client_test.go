package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.NewNop(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateTextAndEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "cmpl-1",
				"object":  "chat.completion",
				"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "  TOPIC: sleep  "}, "finish_reason": "stop"}},
			})
		case "/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data": []map[string]any{
					{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
					{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(logger.NewNop(), Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "TOPIC: sleep", out)

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
}

func TestErrorClassification(t *testing.T) {
	quota := &goopenai.APIError{Type: "insufficient_quota", HTTPStatusCode: http.StatusTooManyRequests}
	assert.True(t, IsQuotaError(quota))
	assert.False(t, IsRetryable(quota))

	limited := &goopenai.APIError{Type: "requests", HTTPStatusCode: http.StatusTooManyRequests}
	assert.False(t, IsQuotaError(limited))
	assert.True(t, IsRetryable(limited))

	bad := &goopenai.APIError{HTTPStatusCode: http.StatusBadRequest}
	assert.False(t, IsRetryable(bad))

	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.False(t, IsRetryable(context.Canceled))
}

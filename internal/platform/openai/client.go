package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("openai: api key not configured")

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	// RPS throttles outbound calls across every caller sharing the client. <= 0 disables it.
	RPS         float64
	Temperature float32
	Timeout     time.Duration
}

// Client is the slice of the OpenAI API the feed backend uses.
type Client interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type client struct {
	log     *logger.Logger
	api     *goopenai.Client
	cfg     Config
	limiter *rate.Limiter
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = string(goopenai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}
	log.Info("openai client initialized", "model", cfg.Model, "embed_model", cfg.EmbedModel, "rps", cfg.RPS)
	return &client{
		log:     log.With("service", "OpenAIClient"),
		api:     goopenai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.cfg.Temperature,
	}
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn("chat completion failed", "model", c.cfg.Model, "error", err, "quota", IsQuotaError(err))
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices")
	}
	c.log.Debug("chat completion", "model", c.cfg.Model, "finish_reason", resp.Choices[0].FinishReason,
		"tokens", resp.Usage.TotalTokens, "latency_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: inputs,
		Model: goopenai.EmbeddingModel(c.cfg.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return out, nil
}

// IsQuotaError reports an exhausted account quota. Plain 429 rate limiting is
// retryable and does not count.
func IsQuotaError(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}
	return false
}

// IsRetryable reports transient upstream failures: rate limiting, 5xx and transport errors.
func IsRetryable(err error) bool {
	if err == nil || IsQuotaError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}
	return true
}

package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/pkg/httpx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
	Timeout    time.Duration
}

// Client is the Go counterpart of the client shell: it submits messages, polls
// generation tasks and reads content.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("feedclient: base url is required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, log: log.With("client", "FeedClient")}, nil
}

type MessageRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Mode     string `json:"mode,omitempty"`
	Language string `json:"language,omitempty"`
}

type MessageResponse struct {
	ReplyRef         string `json:"reply_ref"`
	Topic            string `json:"topic,omitempty"`
	Decision         string `json:"decision"`
	GenerationTaskID string `json:"generation_task_id,omitempty"`
	Fresh            bool   `json:"fresh"`
	Degraded         bool   `json:"degraded"`
}

type ContentResponse struct {
	Items  []feed.ContentItem `json:"items"`
	Source string             `json:"source"`
}

// HTTPError is a non-2xx response decoded from the API error envelope.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("feed api http %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("feed api http %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *Client) SubmitMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*feed.TaskRecord, error) {
	var out feed.TaskRecord
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Content(ctx context.Context, t feed.ContentType, topic, language string, limit int) (*ContentResponse, error) {
	q := url.Values{}
	q.Set("type", string(t))
	if topic != "" {
		q.Set("topic", topic)
	}
	if language != "" {
		q.Set("language", language)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out ContentResponse
	if err := c.do(ctx, http.MethodGet, "/api/content?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("feed api decode %s: %w", path, uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("Feed API request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if !httpx.Sleep(ctx, sleepFor) {
			return ctx.Err()
		}
		backoff *= 2
	}
	return errors.New("unreachable retry loop")
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, decodeHTTPError(resp.StatusCode, raw)
	}
	return resp, raw, nil
}

func decodeHTTPError(status int, raw []byte) *HTTPError {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	he := &HTTPError{StatusCode: status}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		he.Message = env.Error.Message
		he.Code = env.Error.Code
		return he
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	he.Message = msg
	return he
}

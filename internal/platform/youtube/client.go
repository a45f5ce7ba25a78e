package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

var (
	ErrNotConfigured = errors.New("youtube: api key not configured")
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
)

type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Channel      string `json:"channel"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  string `json:"published_at"`
	// Duration is ISO 8601 as returned by the API, e.g. PT8M12S.
	Duration string `json:"duration,omitempty"`
	Views    uint64 `json:"views,omitempty"`
}

func (v Video) URL() string { return "https://www.youtube.com/watch?v=" + v.ID }

type SearchOptions struct {
	Language   string
	MaxResults int64
}

type Client interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Video, error)
}

type Config struct {
	APIKey string
	// Endpoint overrides the API base URL; tests point it at httptest servers.
	Endpoint   string
	HTTPClient *http.Client
}

type client struct {
	log *logger.Logger
	svc *yt.Service
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &client{log: log.With("service", "YouTubeClient"), svc: svc}, nil
}

func (c *client) Search(ctx context.Context, query string, opts SearchOptions) ([]Video, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	call := c.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		VideoDuration("medium").
		SafeSearch("moderate").
		Order("relevance").
		MaxResults(opts.MaxResults).
		Context(ctx)
	if opts.Language != "" {
		call = call.RelevanceLanguage(opts.Language)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, classify(err)
	}

	videos := make([]Video, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, Video{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			Channel:      item.Snippet.ChannelTitle,
			ThumbnailURL: thumbnail(item.Snippet.Thumbnails),
			PublishedAt:  item.Snippet.PublishedAt,
		})
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return videos, nil
	}

	details, err := c.svc.Videos.List([]string{"contentDetails", "statistics"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		if cerr := classify(err); errors.Is(cerr, ErrQuotaExceeded) {
			return nil, cerr
		}
		// search results are usable without durations
		c.log.Warn("video details lookup failed", "error", err)
		return videos, nil
	}
	byID := make(map[string]*yt.Video, len(details.Items))
	for _, d := range details.Items {
		if d != nil {
			byID[d.Id] = d
		}
	}
	for i := range videos {
		d := byID[videos[i].ID]
		if d == nil {
			continue
		}
		if d.ContentDetails != nil {
			videos[i].Duration = d.ContentDetails.Duration
		}
		if d.Statistics != nil {
			videos[i].Views = d.Statistics.ViewCount
		}
	}
	return videos, nil
}

func thumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// classify maps quota responses to ErrQuotaExceeded and wraps everything else.
func classify(err error) error {
	if IsQuotaError(err) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("youtube: %w", err)
}

func IsQuotaError(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return gerr.Code == http.StatusForbidden && strings.Contains(strings.ToLower(gerr.Message), "quota")
}

package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/platform/youtube"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

// VideoQuota is the state of the shared YouTube quota flag.
type VideoQuota struct {
	Exceeded bool      `json:"exceeded"`
	Since    time.Time `json:"since,omitempty"`
	RetryAt  time.Time `json:"retry_at,omitempty"`
}

type VideoGenerator struct {
	client   youtube.Client
	store    cache.Store
	max      int64
	quotaTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewVideoGenerator accepts a nil client; every request is then served from the
// curated fallback list.
func NewVideoGenerator(log *logger.Logger, client youtube.Client, store cache.Store, max int, quotaTTL time.Duration) *VideoGenerator {
	if max <= 0 {
		max = 5
	}
	if quotaTTL <= 0 {
		quotaTTL = time.Hour
	}
	return &VideoGenerator{
		client:   client,
		store:    store,
		max:      int64(max),
		quotaTTL: quotaTTL,
		log:      log.With("service", "VideoGenerator"),
		now:      time.Now,
	}
}

func (g *VideoGenerator) Type() feed.ContentType { return feed.ContentVideo }

func (g *VideoGenerator) Generate(ctx context.Context, topicLabel, language string) ([]feed.ContentItem, error) {
	if strings.TrimSpace(topicLabel) == "" {
		return nil, invalidTopic(feed.ContentVideo)
	}
	if g.client == nil {
		return g.Fallback(topicLabel, language), nil
	}
	if q := g.QuotaStatus(ctx); q.Exceeded {
		return nil, quotaExceeded(feed.ContentVideo, youtube.ErrQuotaExceeded)
	}
	videos, err := g.client.Search(ctx, EnhanceQuery(topicLabel, language), youtube.SearchOptions{
		Language:   language,
		MaxResults: g.max,
	})
	if errors.Is(err, youtube.ErrQuotaExceeded) {
		g.markQuotaExceeded(ctx)
		return nil, quotaExceeded(feed.ContentVideo, err)
	}
	if err != nil {
		return nil, upstream(feed.ContentVideo, err)
	}
	if len(videos) == 0 {
		g.log.Info("no videos found, serving fallback", "topic", topicLabel, "language", language)
		return g.Fallback(topicLabel, language), nil
	}
	return videoItems(topicLabel, language, videos, false), nil
}

func (g *VideoGenerator) Fallback(topicLabel, language string) []feed.ContentItem {
	videos := fallbackVideoList(language)
	if int64(len(videos)) > g.max {
		videos = videos[:g.max]
	}
	return videoItems(topicLabel, language, videos, true)
}

// QuotaStatus reads the shared flag. An unreachable store reads as not exceeded.
func (g *VideoGenerator) QuotaStatus(ctx context.Context) VideoQuota {
	var q VideoQuota
	if err := cache.GetJSON(ctx, g.store, cache.VideoQuotaKey(), &q); err != nil {
		return VideoQuota{}
	}
	return q
}

// ResetQuota clears the flag so the next request calls the API again.
func (g *VideoGenerator) ResetQuota(ctx context.Context) error {
	g.log.Info("video quota flag reset")
	return g.store.Delete(ctx, cache.VideoQuotaKey())
}

func (g *VideoGenerator) markQuotaExceeded(ctx context.Context) {
	now := g.now().UTC()
	q := VideoQuota{Exceeded: true, Since: now, RetryAt: now.Add(g.quotaTTL)}
	if err := cache.SetJSON(ctx, g.store, cache.VideoQuotaKey(), q, g.quotaTTL); err != nil {
		g.log.Warn("failed to record video quota flag", "error", err)
	}
	g.log.Warn("youtube quota exceeded", "retry_at", q.RetryAt)
}

// EnhanceQuery expands well-known topics into better search phrases and appends a
// self-help hint in the request language.
func EnhanceQuery(topicLabel, language string) string {
	q, ok := queryExpansions[topic.Fold(topicLabel)]
	if !ok {
		q = topicLabel
	}
	if language == "ru" {
		return q + " самопомощь психология"
	}
	return q + " self help psychology"
}

type videoPayload struct {
	VideoID         string `json:"video_id"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Duration        string `json:"duration,omitempty"`
	DurationDisplay string `json:"duration_display,omitempty"`
	Views           uint64 `json:"views,omitempty"`
	PublishedAt     string `json:"published_at,omitempty"`
}

func videoItems(topicLabel, language string, videos []youtube.Video, fallback bool) []feed.ContentItem {
	out := make([]feed.ContentItem, 0, len(videos))
	for _, v := range videos {
		it := feed.NewContentItem(feed.ContentVideo, topicLabel, language)
		it.Title = v.Title
		it.Body = v.Description
		it.Author = v.Channel
		it.URL = v.URL()
		it.IsFallback = fallback
		raw, _ := json.Marshal(videoPayload{
			VideoID:         v.ID,
			ThumbnailURL:    v.ThumbnailURL,
			Duration:        v.Duration,
			DurationDisplay: FormatDuration(v.Duration),
			Views:           v.Views,
			PublishedAt:     v.PublishedAt,
		})
		it.Payload = datatypes.JSON(raw)
		out = append(out, it)
	}
	return out
}

// FormatDuration renders an ISO 8601 duration such as PT1H2M5S as 1:02:05, or
// PT8M30S as 8:30. Unparseable input yields "".
func FormatDuration(iso string) string {
	rest, ok := strings.CutPrefix(iso, "PT")
	if !ok || rest == "" {
		return ""
	}
	var h, m, s int
	for rest != "" {
		i := strings.IndexAny(rest, "HMS")
		if i <= 0 {
			return ""
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return ""
		}
		switch rest[i] {
		case 'H':
			h = n
		case 'M':
			m = n
		case 'S':
			s = n
		}
		rest = rest[i+1:]
	}
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

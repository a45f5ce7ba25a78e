package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/generation"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/apierr"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/scheduler"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

const (
	defaultContentLimit = 10
	maxContentLimit     = 50
	poolLoadTimeout     = 5 * time.Second
)

const (
	SourceCache     = "cache"
	SourceDurable   = "durable"
	SourceGenerated = "generated"
	SourceNone      = "none"
)

type SubmitMessageInput struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	Language string `json:"language"`
}

type SubmitMessageResult struct {
	ReplyRef         string             `json:"reply_ref"`
	Topic            string             `json:"topic,omitempty"`
	Decision         topic.DecisionKind `json:"decision"`
	GenerationTaskID string             `json:"generation_task_id,omitempty"`
	Fresh            bool               `json:"fresh"`
	Degraded         bool               `json:"degraded"`
}

type ContentQuery struct {
	Type     feed.ContentType
	Topic    string
	Language string
	Limit    int
}

type ContentResult struct {
	Items  []feed.ContentItem `json:"items"`
	Source string             `json:"source"`
}

type HealthReport struct {
	Store    bool `json:"store"`
	Database bool `json:"database"`
}

func (h HealthReport) OK() bool { return h.Store && h.Database }

type VideoQuotaController interface {
	QuotaStatus(ctx context.Context) generation.VideoQuota
	ResetQuota(ctx context.Context) error
}

type PopularTopicSource interface {
	PopularTopics(ctx context.Context, lang string) ([]scheduler.PopularTopic, error)
}

type FeedService interface {
	SubmitMessage(ctx context.Context, in SubmitMessageInput) (*SubmitMessageResult, error)
	GetTaskStatus(ctx context.Context, taskID string) (*feed.TaskRecord, error)
	GetUserTopic(ctx context.Context, userID string) (*feed.UserTopicRecord, error)
	RefreshUserTopic(ctx context.Context, userID string) error
	GetContent(ctx context.Context, q ContentQuery) (*ContentResult, error)
	DailyQuote(ctx context.Context, language string) (*feed.ContentItem, error)
	PopularTopics(ctx context.Context, language string) ([]scheduler.PopularTopic, error)
	VideoQuota(ctx context.Context) generation.VideoQuota
	ResetVideoQuota(ctx context.Context) error
	Health(ctx context.Context) HealthReport
}

type FeedDeps struct {
	Extractor   *topic.Extractor
	Normalizer  *topic.Normalizer
	Coordinator *generation.Coordinator
	Tracker     *tasks.Tracker
	Store       cache.Store
	Items       repos.ContentItemRepo
	Videos      VideoQuotaController
	Popular     PopularTopicSource
	DB          *gorm.DB
	ContentTTL  time.Duration
	PoolTTL     time.Duration
	Metrics     *observability.Metrics
}

type feedService struct {
	deps FeedDeps
	pool singleflight.Group
	log  *logger.Logger
	now  func() time.Time
}

func NewFeedService(log *logger.Logger, deps FeedDeps) FeedService {
	if deps.ContentTTL <= 0 {
		deps.ContentTTL = 24 * time.Hour
	}
	if deps.PoolTTL <= 0 {
		deps.PoolTTL = 5 * time.Minute
	}
	return &feedService{
		deps: deps,
		log:  log.With("service", "FeedService"),
		now:  time.Now,
	}
}

func (s *feedService) storeAvailable() bool {
	if a, ok := s.deps.Store.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "ru" {
		return "ru"
	}
	return "en"
}

func (s *feedService) SubmitMessage(ctx context.Context, in SubmitMessageInput) (*SubmitMessageResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, apierr.BadRequest("missing_user_id", errors.New("user_id is required"))
	}
	lang := normalizeLanguage(in.Language)
	out := &SubmitMessageResult{ReplyRef: uuid.NewString()}

	label, _ := s.deps.Extractor.Extract(ctx, in.Text, in.Mode, lang)
	d, rec, err := s.deps.Normalizer.Apply(ctx, userID, lang, label)
	if err != nil {
		s.log.Warn("user topic not persisted", "user_id", userID, "error", err)
	}
	out.Decision = d.Kind
	if rec != nil {
		out.Topic = rec.Topic
	}
	if !d.TriggersGeneration() {
		out.Degraded = !s.storeAvailable()
		return out, nil
	}

	disp, err := s.deps.Coordinator.Dispatch(ctx, generation.Request{Topic: d.Label, Language: lang})
	if err != nil {
		// the reply still goes out; content is picked up on the next topic change
		s.log.Error("generation dispatch failed", "user_id", userID, "topic", d.Label, "error", err)
		out.Degraded = !s.storeAvailable()
		return out, nil
	}
	out.GenerationTaskID = disp.TaskID
	out.Fresh = disp.Fresh
	out.Degraded = disp.Degraded || !s.storeAvailable()
	return out, nil
}

func (s *feedService) GetTaskStatus(ctx context.Context, taskID string) (*feed.TaskRecord, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, apierr.BadRequest("missing_task_id", errors.New("task id is required"))
	}
	rec, err := s.deps.Tracker.Status(ctx, taskID)
	if err != nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "task_status_unavailable", err)
	}
	return rec, nil
}

func (s *feedService) GetUserTopic(ctx context.Context, userID string) (*feed.UserTopicRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apierr.BadRequest("missing_user_id", errors.New("user id is required"))
	}
	rec, err := s.deps.Normalizer.Current(ctx, userID)
	if err != nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "user_topic_unavailable", err)
	}
	if rec == nil {
		return &feed.UserTopicRecord{UserID: userID}, nil
	}
	return rec, nil
}

func (s *feedService) RefreshUserTopic(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apierr.BadRequest("missing_user_id", errors.New("user id is required"))
	}
	if err := s.deps.Normalizer.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset user topic: %w", err)
	}
	s.log.Info("user topic reset", "user_id", userID)
	return nil
}

// GetContent serves the topic list from the store, then the durable rows, and only
// generates inline when the store is down and nothing durable exists. Without a topic
// it serves a random general pool.
func (s *feedService) GetContent(ctx context.Context, q ContentQuery) (*ContentResult, error) {
	if !q.Type.Valid() {
		return nil, apierr.BadRequest("invalid_content_type", fmt.Errorf("unknown content type %q", q.Type))
	}
	lang := normalizeLanguage(q.Language)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultContentLimit
	}
	if limit > maxContentLimit {
		limit = maxContentLimit
	}
	if strings.TrimSpace(q.Topic) == "" {
		items, err := s.generalPool(ctx, q.Type, lang, limit)
		if err != nil {
			return nil, err
		}
		return &ContentResult{Items: clip(items, limit), Source: SourceDurable}, nil
	}

	key := topic.Key(q.Topic)
	var items []feed.ContentItem
	if err := cache.GetJSON(ctx, s.deps.Store, cache.ContentKey(q.Type, lang, key), &items); err == nil {
		s.deps.Metrics.CacheOp("content", "hit")
		return &ContentResult{Items: clip(items, limit), Source: SourceCache}, nil
	}
	s.deps.Metrics.CacheOp("content", "miss")

	rows, err := s.deps.Items.ListActive(dbctx.Context{Ctx: ctx}, q.Type, lang, key, limit)
	if err != nil {
		s.log.Warn("durable content read failed", "topic", key, "error", err)
	}
	if len(rows) > 0 {
		items = deref(rows)
		if err := cache.SetJSON(ctx, s.deps.Store, cache.ContentKey(q.Type, lang, key), items, s.deps.ContentTTL); err != nil {
			s.log.Debug("content read-through not cached", "error", err)
		}
		return &ContentResult{Items: items, Source: SourceDurable}, nil
	}

	if !s.storeAvailable() {
		s.log.Warn("store unavailable, generating inline", "topic", key, "type", q.Type)
		res := s.deps.Coordinator.GenerateDirect(ctx, q.Topic, lang, []feed.ContentType{q.Type})
		return &ContentResult{Items: clip(res.Items, limit), Source: SourceGenerated}, nil
	}
	return &ContentResult{Items: []feed.ContentItem{}, Source: SourceNone}, nil
}

func (s *feedService) generalPool(ctx context.Context, t feed.ContentType, lang string, limit int) ([]feed.ContentItem, error) {
	key := cache.GeneralPoolKey(t, lang)
	var items []feed.ContentItem
	if err := cache.GetJSON(ctx, s.deps.Store, key, &items); err == nil {
		s.deps.Metrics.CacheOp("pool", "hit")
		return items, nil
	}
	s.deps.Metrics.CacheOp("pool", "miss")
	v, err, _ := s.pool.Do(key, func() (any, error) {
		// shared by every coalesced caller, so one caller cancelling must not fail the rest
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), poolLoadTimeout)
		defer cancel()
		rows, err := s.deps.Items.ListRandomActive(dbctx.Context{Ctx: loadCtx}, t, lang, maxContentLimit)
		if err != nil {
			return nil, err
		}
		items := deref(rows)
		if len(items) > 0 {
			if err := cache.SetJSON(loadCtx, s.deps.Store, key, items, s.deps.PoolTTL); err != nil {
				s.log.Debug("general pool not cached", "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load general %s pool: %w", t, err)
	}
	return v.([]feed.ContentItem), nil
}

func (s *feedService) DailyQuote(ctx context.Context, language string) (*feed.ContentItem, error) {
	lang := normalizeLanguage(language)
	now := s.now().UTC()
	key := cache.DailyQuoteKey(lang, generation.DayStamp(now))
	var q feed.ContentItem
	if err := cache.GetJSON(ctx, s.deps.Store, key, &q); err == nil {
		return &q, nil
	}
	item, err := generation.QuoteOfTheDay(dbctx.Context{Ctx: ctx}, s.deps.Items, lang, now)
	if errors.Is(err, generation.ErrNoQuotes) {
		return nil, apierr.NotFound("no_quotes", err)
	}
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.deps.Store, key, item, 25*time.Hour); err != nil {
		s.log.Debug("daily quote not cached", "error", err)
	}
	return item, nil
}

func (s *feedService) PopularTopics(ctx context.Context, language string) ([]scheduler.PopularTopic, error) {
	if s.deps.Popular == nil {
		return []scheduler.PopularTopic{}, nil
	}
	return s.deps.Popular.PopularTopics(ctx, normalizeLanguage(language))
}

func (s *feedService) VideoQuota(ctx context.Context) generation.VideoQuota {
	if s.deps.Videos == nil {
		return generation.VideoQuota{}
	}
	return s.deps.Videos.QuotaStatus(ctx)
}

func (s *feedService) ResetVideoQuota(ctx context.Context) error {
	if s.deps.Videos == nil {
		return nil
	}
	return s.deps.Videos.ResetQuota(ctx)
}

func (s *feedService) Health(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var h HealthReport
	h.Store = s.deps.Store.Ping(ctx) == nil
	if s.deps.DB != nil {
		if sqlDB, err := s.deps.DB.DB(); err == nil {
			h.Database = sqlDB.PingContext(ctx) == nil
		}
	}
	return h
}

func deref(rows []*feed.ContentItem) []feed.ContentItem {
	out := make([]feed.ContentItem, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func clip(items []feed.ContentItem, limit int) []feed.ContentItem {
	if items == nil {
		return []feed.ContentItem{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

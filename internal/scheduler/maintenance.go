package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/generation"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

const (
	JobRefreshPopular = "refresh_popular_topics"
	JobPrewarmDaily   = "prewarm_daily_content"
	JobEvictExpired   = "evict_expired"
)

// PopularTopic is one entry of the feed:popular:{lang} list.
type PopularTopic struct {
	Topic     string    `json:"topic"`
	Frequency int64     `json:"frequency"`
	LastSeen  time.Time `json:"last_seen"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req generation.Request) (generation.Dispatch, error)
}

type MaintenanceConfig struct {
	Languages        []string
	TopN             int
	PopularWindow    time.Duration
	PopularTTL       time.Duration
	PrewarmTopics    int
	ContentRetention time.Duration
}

// Maintenance holds the bodies of the built-in scheduler jobs.
type Maintenance struct {
	store      cache.Store
	items      repos.ContentItemRepo
	stats      repos.TopicStatRepo
	dispatcher Dispatcher
	cfg        MaintenanceConfig
	log        *logger.Logger
	now        func() time.Time
}

func NewMaintenance(
	log *logger.Logger,
	store cache.Store,
	items repos.ContentItemRepo,
	stats repos.TopicStatRepo,
	dispatcher Dispatcher,
	cfg MaintenanceConfig,
) *Maintenance {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en", "ru"}
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.PopularWindow <= 0 {
		cfg.PopularWindow = 7 * 24 * time.Hour
	}
	if cfg.PopularTTL <= 0 {
		cfg.PopularTTL = time.Hour
	}
	if cfg.ContentRetention <= 0 {
		cfg.ContentRetention = 7 * 24 * time.Hour
	}
	return &Maintenance{
		store:      store,
		items:      items,
		stats:      stats,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With("service", "Maintenance"),
		now:        time.Now,
	}
}

// Register adds the three built-in jobs with the given intervals.
func (m *Maintenance) Register(s *Scheduler, popular, prewarm, evict time.Duration) {
	s.Add(JobRefreshPopular, popular, m.RefreshPopularTopics)
	s.Add(JobPrewarmDaily, prewarm, m.PrewarmDailyContent)
	s.Add(JobEvictExpired, evict, m.EvictExpired)
}

func (m *Maintenance) languages(ctx context.Context) []string {
	seen := map[string]bool{}
	out := append([]string(nil), m.cfg.Languages...)
	for _, l := range out {
		seen[l] = true
	}
	langs, err := m.stats.Languages(dbctx.Context{Ctx: ctx})
	if err != nil {
		m.log.Warn("list topic languages", "error", err)
		return out
	}
	for _, l := range langs {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Maintenance) RefreshPopularTopics(ctx context.Context) error {
	since := m.now().Add(-m.cfg.PopularWindow)
	var errs []error
	for _, lang := range m.languages(ctx) {
		top, err := m.popular(ctx, lang, since)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := cache.SetJSON(ctx, m.store, cache.PopularTopicsKey(lang), top, m.cfg.PopularTTL); err != nil {
			errs = append(errs, err)
			continue
		}
		m.log.Debug("popular topics refreshed", "language", lang, "count", len(top))
	}
	return errors.Join(errs...)
}

func (m *Maintenance) popular(ctx context.Context, lang string, since time.Time) ([]PopularTopic, error) {
	rows, err := m.stats.Top(dbctx.Context{Ctx: ctx}, lang, since, m.cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("top topics %s: %w", lang, err)
	}
	out := make([]PopularTopic, 0, len(rows))
	for _, r := range rows {
		out = append(out, PopularTopic{Topic: r.Topic, Frequency: r.Frequency, LastSeen: r.LastMentioned})
	}
	return out, nil
}

// PopularTopics reads the cached list, computing it from the durable stats on a miss.
func (m *Maintenance) PopularTopics(ctx context.Context, lang string) ([]PopularTopic, error) {
	var top []PopularTopic
	if err := cache.GetJSON(ctx, m.store, cache.PopularTopicsKey(lang), &top); err == nil {
		return top, nil
	}
	return m.popular(ctx, lang, m.now().Add(-m.cfg.PopularWindow))
}

func (m *Maintenance) PrewarmDailyContent(ctx context.Context) error {
	now := m.now().UTC()
	dbc := dbctx.Context{Ctx: ctx}
	var errs []error
	for _, lang := range m.languages(ctx) {
		q, err := generation.QuoteOfTheDay(dbc, m.items, lang, now)
		switch {
		case errors.Is(err, generation.ErrNoQuotes):
			m.log.Debug("no quotes for language", "language", lang)
		case err != nil:
			errs = append(errs, fmt.Errorf("daily quote %s: %w", lang, err))
		default:
			if err := cache.SetJSON(ctx, m.store, cache.DailyQuoteKey(lang, generation.DayStamp(now)), q, 25*time.Hour); err != nil {
				errs = append(errs, err)
			}
		}

		if m.dispatcher == nil || m.cfg.PrewarmTopics <= 0 {
			continue
		}
		top, err := m.PopularTopics(ctx, lang)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(top) > m.cfg.PrewarmTopics {
			top = top[:m.cfg.PrewarmTopics]
		}
		for _, t := range top {
			d, err := m.dispatcher.Dispatch(ctx, generation.Request{Topic: topic.LabelFromKey(t.Topic), Language: lang, Background: true})
			if err != nil {
				errs = append(errs, fmt.Errorf("prewarm %s/%s: %w", lang, t.Topic, err))
				continue
			}
			if d.Started {
				m.log.Info("prewarm dispatched", "language", lang, "topic", t.Topic, "task_id", d.TaskID)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Maintenance) EvictExpired(ctx context.Context) error {
	var errs []error
	n, err := m.store.EvictExpired(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("evict store: %w", err))
	} else if n > 0 {
		m.log.Info("evicted expired entries", "count", n)
	}
	cutoff := m.now().Add(-m.cfg.ContentRetention)
	if _, err := m.items.RetireOlderThan(dbctx.Context{Ctx: ctx}, cutoff); err != nil {
		errs = append(errs, fmt.Errorf("retire content: %w", err))
	}
	return errors.Join(errs...)
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/jobs"
	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

// UnitJobType is the queue job type carrying a generation Unit.
const UnitJobType = "generate_topic_content"

// AllFailedReason is recorded on units that produced no content at all.
const AllFailedReason = "all content generators failed"

const lockAttempts = 3

type Request struct {
	Topic      string
	Language   string
	Types      []feed.ContentType
	// Background marks scheduler-originated requests; they are not counted as topic mentions.
	Background bool
}

// Dispatch reports what happened to a Request. At most one of Started, Fresh and
// Degraded is set; a joined request has TaskID set and Started false.
type Dispatch struct {
	TaskID   string `json:"task_id,omitempty"`
	TopicKey string `json:"topic_key"`
	Started  bool   `json:"started"`
	Fresh    bool   `json:"fresh"`
	Degraded bool   `json:"degraded"`
}

// Unit is the queued work item for one topic.
type Unit struct {
	TaskID     string             `json:"task_id"`
	Topic      string             `json:"topic"`
	TopicKey   string             `json:"topic_key"`
	Language   string             `json:"language"`
	Types      []feed.ContentType `json:"types"`
	LeaseUntil time.Time          `json:"lease_until"`
}

type CoordinatorConfig struct {
	Lease      time.Duration
	ContentTTL time.Duration
}

type Coordinator struct {
	store      cache.Store
	tracker    *tasks.Tracker
	queue      jobs.Queue
	items      repos.ContentItemRepo
	stats      repos.TopicStatRepo
	policy     *Policy
	generators map[feed.ContentType]Generator
	cfg        CoordinatorConfig
	log        *logger.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewCoordinator(
	log *logger.Logger,
	store cache.Store,
	tracker *tasks.Tracker,
	queue jobs.Queue,
	items repos.ContentItemRepo,
	stats repos.TopicStatRepo,
	policy *Policy,
	generators []Generator,
	cfg CoordinatorConfig,
	metrics *observability.Metrics,
) *Coordinator {
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if cfg.ContentTTL <= 0 {
		cfg.ContentTTL = 24 * time.Hour
	}
	byType := make(map[feed.ContentType]Generator, len(generators))
	for _, g := range generators {
		byType[g.Type()] = g
	}
	return &Coordinator{
		store:      store,
		tracker:    tracker,
		queue:      queue,
		items:      items,
		stats:      stats,
		policy:     policy,
		generators: byType,
		cfg:        cfg,
		log:        log.With("service", "GenerationCoordinator"),
		metrics:    metrics,
		now:        time.Now,
	}
}

// Dispatch guarantees at most one generation unit per (language, topic) while the
// lock lease is held. Concurrent callers for the same topic converge on one task id.
func (c *Coordinator) Dispatch(ctx context.Context, req Request) (Dispatch, error) {
	key := topic.Key(req.Topic)
	if key == "" {
		return Dispatch{}, ErrInvalidTopic
	}
	lang := normalizeLanguage(req.Language)
	types := c.normalizeTypes(req.Types)
	out := Dispatch{TopicKey: key}

	if !req.Background {
		if err := c.stats.Increment(dbctx.Context{Ctx: ctx}, key, lang, c.now().UTC()); err != nil {
			c.log.Warn("topic stat increment failed", "topic", key, "error", err)
		}
	}

	if _, err := c.store.Get(ctx, cache.FreshKey(lang, key)); err == nil {
		c.metrics.Dispatch("fresh")
		out.Fresh = true
		return out, nil
	}

	taskID := uuid.NewString()
	if _, err := c.tracker.Create(ctx, taskID, req.Topic, lang, types); err != nil {
		c.log.Warn("task record not written", "task_id", taskID, "error", err)
	}

	lockKey := cache.GenerationLockKey(lang, key)
	var (
		acquired bool
		holder   string
		err      error
	)
	for attempt := 0; attempt < lockAttempts; attempt++ {
		acquired, holder, err = c.store.TryAcquireLock(ctx, lockKey, taskID, c.cfg.Lease)
		// an empty holder means the previous lease lapsed between SET NX and GET
		if err != nil || acquired || holder != "" {
			break
		}
	}
	if err != nil {
		_ = c.tracker.Discard(ctx, taskID)
		if errors.Is(err, cache.ErrUnavailable) {
			c.metrics.Dispatch("degraded")
			out.Degraded = true
			return out, nil
		}
		return Dispatch{}, fmt.Errorf("acquire generation lock %s: %w", lockKey, err)
	}
	if !acquired {
		if derr := c.tracker.Discard(ctx, taskID); derr != nil {
			c.log.Warn("discard losing task record failed", "task_id", taskID, "error", derr)
		}
		if holder == "" {
			return Dispatch{}, fmt.Errorf("acquire generation lock %s: holder vanished", lockKey)
		}
		c.metrics.Dispatch("joined")
		out.TaskID = holder
		return out, nil
	}

	unit := Unit{
		TaskID:     taskID,
		Topic:      req.Topic,
		TopicKey:   key,
		Language:   lang,
		Types:      types,
		LeaseUntil: c.now().Add(c.cfg.Lease).UTC(),
	}
	job, err := runtime.NewJob(UnitJobType, unit)
	if err == nil {
		err = c.queue.Enqueue(ctx, job)
	}
	if err != nil {
		c.abandon(unit, "enqueue failed")
		return Dispatch{}, fmt.Errorf("enqueue generation unit: %w", err)
	}
	c.log.Info("generation unit dispatched", "task_id", taskID, "topic", key, "language", lang, "types", types)
	c.metrics.Dispatch("started")
	out.TaskID = taskID
	out.Started = true
	return out, nil
}

// RunUnit executes a unit on a worker. The unit is bounded by its lease; work that
// starts after the lease has lapsed is failed without running generators.
func (c *Coordinator) RunUnit(ctx context.Context, u Unit) error {
	start := c.now()
	log := c.log.With("task_id", u.TaskID, "topic", u.TopicKey, "language", u.Language)
	if !u.LeaseUntil.IsZero() && !start.Before(u.LeaseUntil) {
		log.Warn("unit picked up after its lease expired")
		c.abandon(u, tasks.LeaseExpiredReason)
		c.metrics.ObserveUnit("expired", 0)
		return nil
	}

	runCtx := ctx
	if !u.LeaseUntil.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, u.LeaseUntil)
		defer cancel()
	}
	result := c.generate(runCtx, u.Topic, u.Language, u.Types)

	// bookkeeping must land even when the lease ran out mid-generation
	final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	defer c.release(final, u)

	status := "completed"
	if len(result.Items) == 0 {
		status = "failed"
		if _, err := c.tracker.Fail(final, u.TaskID, AllFailedReason); err != nil {
			log.Warn("mark task failed", "error", err)
		}
	} else {
		c.persist(final, u, &result)
		if _, err := c.tracker.Complete(final, u.TaskID, result); err != nil {
			log.Warn("mark task completed", "error", err)
		}
	}
	d := c.now().Sub(start)
	c.metrics.ObserveUnit(status, d)
	log.Info("generation unit finished",
		"status", status,
		"items", len(result.Items),
		"missing", result.MissingTypes,
		"quota_exhausted", result.QuotaExhausted,
		"duration_ms", d.Milliseconds(),
	)
	return nil
}

// GenerateDirect runs the generators inline without touching the store, locks or the
// durable tables. Used when the store is unreachable.
func (c *Coordinator) GenerateDirect(ctx context.Context, topicLabel, language string, types []feed.ContentType) feed.TaskResult {
	return c.generate(ctx, topicLabel, normalizeLanguage(language), c.normalizeTypes(types))
}

func (c *Coordinator) generate(ctx context.Context, topicLabel, language string, types []feed.ContentType) feed.TaskResult {
	key := topic.Key(topicLabel)
	outcomes := make([]Outcome, len(types))
	var g errgroup.Group
	for i, t := range types {
		gen, ok := c.generators[t]
		if !ok {
			outcomes[i] = Outcome{Type: t, Missing: true}
			continue
		}
		g.Go(func() error {
			outcomes[i] = c.policy.Run(ctx, gen, topicLabel, language)
			return nil
		})
	}
	_ = g.Wait()

	result := feed.TaskResult{Items: []feed.ContentItem{}}
	for _, o := range outcomes {
		if o.Missing {
			result.MissingTypes = append(result.MissingTypes, o.Type)
			continue
		}
		if o.QuotaExhausted {
			result.QuotaExhausted = true
		}
		for _, it := range o.Items {
			it.Topic = key
			it.Language = language
			result.Items = append(result.Items, it)
		}
	}
	return result
}

func (c *Coordinator) persist(ctx context.Context, u Unit, result *feed.TaskResult) {
	byType := make(map[feed.ContentType][]feed.ContentItem)
	for _, it := range result.Items {
		byType[it.Type] = append(byType[it.Type], it)
	}
	for t, items := range byType {
		if err := cache.SetJSON(ctx, c.store, cache.ContentKey(t, u.Language, u.TopicKey), items, c.cfg.ContentTTL); err != nil {
			c.log.Warn("cache content list", "type", t, "topic", u.TopicKey, "error", err)
		}
		rows := make([]*feed.ContentItem, len(items))
		keep := make([]uuid.UUID, len(items))
		for i := range items {
			rows[i] = &items[i]
			keep[i] = items[i].ID
		}
		dbc := dbctx.Context{Ctx: ctx}
		if _, err := c.items.Create(dbc, rows); err != nil {
			c.log.Error("persist content rows", "type", t, "topic", u.TopicKey, "error", err)
			continue
		}
		if n, err := c.items.RetireSuperseded(dbc, t, u.Language, u.TopicKey, keep); err != nil {
			c.log.Warn("retire superseded rows", "type", t, "error", err)
		} else if n > 0 {
			c.log.Debug("retired superseded rows", "type", t, "count", n)
		}
	}
	// partial and quota-fallback results stay re-dispatchable
	if len(result.MissingTypes) == 0 && !result.QuotaExhausted {
		if err := c.store.Set(ctx, cache.FreshKey(u.Language, u.TopicKey), []byte(u.TaskID), c.cfg.ContentTTL); err != nil {
			c.log.Warn("set freshness marker", "topic", u.TopicKey, "error", err)
		}
	}
}

func (c *Coordinator) abandon(u Unit, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.tracker.Fail(ctx, u.TaskID, reason); err != nil {
		c.log.Warn("fail abandoned task", "task_id", u.TaskID, "error", err)
	}
	c.release(ctx, u)
}

func (c *Coordinator) release(ctx context.Context, u Unit) {
	released, err := c.store.ReleaseLock(ctx, cache.GenerationLockKey(u.Language, u.TopicKey), u.TaskID)
	if err != nil {
		c.log.Warn("release generation lock", "task_id", u.TaskID, "error", err)
		return
	}
	if !released {
		c.log.Debug("generation lock already gone or taken over", "task_id", u.TaskID)
	}
}

func (c *Coordinator) normalizeTypes(in []feed.ContentType) []feed.ContentType {
	if len(in) == 0 {
		return append([]feed.ContentType(nil), feed.AllContentTypes...)
	}
	seen := make(map[feed.ContentType]bool, len(in))
	out := make([]feed.ContentType, 0, len(in))
	for _, t := range in {
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return append([]feed.ContentType(nil), feed.AllContentTypes...)
	}
	return out
}

func normalizeLanguage(lang string) string {
	switch lang {
	case "ru":
		return "ru"
	default:
		return "en"
	}
}

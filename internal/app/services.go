package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/generation"
	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
	"github.com/yungbote/mindfeed-backend/internal/jobs/worker"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/scheduler"
	"github.com/yungbote/mindfeed-backend/internal/services"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
	"github.com/yungbote/mindfeed-backend/internal/topic"
)

// taskGrace is how long past the lease a pending task may sit before Status
// reports it failed.
const taskGrace = 30 * time.Second

type Services struct {
	Tracker     *tasks.Tracker
	Extractor   *topic.Extractor
	Normalizer  *topic.Normalizer
	Videos      *generation.VideoGenerator
	Coordinator *generation.Coordinator
	Maintenance *scheduler.Maintenance
	Scheduler   *scheduler.Scheduler
	Worker      *worker.Worker
	Feed        services.FeedService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, c Clients, r Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var (
		llm      generation.LLM
		topicLLM topic.LLM
		embedder topic.Embedder
	)
	if c.OpenAI != nil {
		llm, topicLLM, embedder = c.OpenAI, c.OpenAI, c.OpenAI
	}

	tracker := tasks.NewTracker(log, c.Store, cfg.TaskRetention, cfg.GenerationLease+taskGrace)
	extractor := topic.NewExtractor(log, topicLLM, cfg.ExtractTimeout)
	judge := topic.NewJudge(log, embedder, cfg.SimilarityThreshold)
	normalizer := topic.NewNormalizer(log, c.Store, judge, cfg.UserTopicTTL, metrics)

	videos := generation.NewVideoGenerator(log, c.YouTube, c.Store, cfg.VideosPerTopic, cfg.VideoQuotaTTL)
	generators := []generation.Generator{
		videos,
		generation.NewArticleGenerator(log, llm, cfg.ArticlesPerTopic),
		generation.NewQuoteGenerator(log, llm),
	}
	coord := generation.NewCoordinator(
		log,
		c.Store,
		tracker,
		c.Queue,
		r.ContentItem,
		r.TopicStat,
		generation.NewPolicy(log, cfg.GeneratorRetryBackoff, metrics),
		generators,
		generation.CoordinatorConfig{Lease: cfg.GenerationLease, ContentTTL: cfg.ContentTTL},
		metrics,
	)

	registry := runtime.NewRegistry()
	if err := registry.Register(generation.NewUnitHandler(coord)); err != nil {
		return Services{}, fmt.Errorf("register unit handler: %w", err)
	}
	w := worker.NewWorker(log, c.Queue, registry, metrics, cfg.WorkerConcurrency)

	maint := scheduler.NewMaintenance(log, c.Store, r.ContentItem, r.TopicStat, coord, scheduler.MaintenanceConfig{
		TopN:             cfg.PopularTopN,
		PrewarmTopics:    cfg.PrewarmTopics,
		ContentRetention: cfg.ContentRetention,
	})
	sched := scheduler.New(log, c.Store, metrics)
	maint.Register(sched, cfg.PopularInterval, cfg.PrewarmInterval, cfg.EvictInterval)

	feedSvc := services.NewFeedService(log, services.FeedDeps{
		Extractor:   extractor,
		Normalizer:  normalizer,
		Coordinator: coord,
		Tracker:     tracker,
		Store:       c.Store,
		Items:       r.ContentItem,
		Videos:      videos,
		Popular:     maint,
		DB:          db,
		ContentTTL:  cfg.ContentTTL,
		PoolTTL:     cfg.PoolTTL,
		Metrics:     metrics,
	})

	return Services{
		Tracker:     tracker,
		Extractor:   extractor,
		Normalizer:  normalizer,
		Videos:      videos,
		Coordinator: coord,
		Maintenance: maint,
		Scheduler:   sched,
		Worker:      w,
		Feed:        feedSvc,
	}, nil
}

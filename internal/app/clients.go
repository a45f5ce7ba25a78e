package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/jobs"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/platform/openai"
	"github.com/yungbote/mindfeed-backend/internal/platform/redis"
	"github.com/yungbote/mindfeed-backend/internal/platform/youtube"
)

type Clients struct {
	Redis   *goredis.Client
	Store   *cache.Resilient
	Queue   jobs.Queue
	OpenAI  openai.Client
	YouTube youtube.Client
}

// wireClients connects the outbound dependencies. Redis is optional: without
// REDIS_ADDR the store and queue live in process, which only suits a single
// replica running every role.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	var inner cache.Store
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err := redis.NewClient(ctx, log, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		inner = cache.NewRedisStore(rdb)
		out.Queue = jobs.NewRedisQueue(rdb, cfg.QueueKey)
	} else {
		log.Warn("REDIS_ADDR not set, using in-process store and queue")
		inner = cache.NewMemoryStore()
		out.Queue = jobs.NewMemoryQueue(cfg.QueueCapacity)
	}
	out.Store = cache.NewResilient(inner, log, metrics)

	llm, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.OpenAIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		RPS:        cfg.OpenAIRPS,
	})
	switch {
	case errors.Is(err, openai.ErrNotConfigured):
		log.Warn("OPENAI_API_KEY not set, topic extraction and text generation disabled")
	case err != nil:
		return Clients{}, fmt.Errorf("init openai: %w", err)
	default:
		out.OpenAI = llm
	}

	yt, err := youtube.NewClient(ctx, log, youtube.Config{APIKey: cfg.YouTubeKey})
	switch {
	case errors.Is(err, youtube.ErrNotConfigured):
		log.Warn("YOUTUBE_API_KEY not set, serving curated videos only")
	case err != nil:
		return Clients{}, fmt.Errorf("init youtube: %w", err)
	default:
		out.YouTube = yt
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/platform/config"
)

type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	QueueKey      string `env:"QUEUE_KEY" envDefault:"mindfeed:queue:generation"`
	QueueCapacity int    `env:"QUEUE_CAPACITY" envDefault:"1024"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN      string `env:"DSN"`

	UserTopicTTL     time.Duration `env:"USER_TOPIC_TTL" envDefault:"30m"`
	ContentTTL       time.Duration `env:"CONTENT_TTL" envDefault:"24h"`
	PoolTTL          time.Duration `env:"GENERAL_POOL_TTL" envDefault:"5m"`
	GenerationLease  time.Duration `env:"GENERATION_LEASE" envDefault:"2m"`
	TaskRetention    time.Duration `env:"TASK_RETENTION" envDefault:"1h"`
	ContentRetention time.Duration `env:"CONTENT_RETENTION" envDefault:"168h"`

	SimilarityThreshold float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.75"`
	ExtractTimeout      time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"10s"`

	WorkerConcurrency     int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	VideosPerTopic        int           `env:"VIDEOS_PER_TOPIC" envDefault:"5"`
	ArticlesPerTopic      int           `env:"ARTICLES_PER_TOPIC" envDefault:"1"`
	GeneratorRetryBackoff time.Duration `env:"GENERATOR_RETRY_BACKOFF" envDefault:"500ms"`
	VideoQuotaTTL         time.Duration `env:"VIDEO_QUOTA_TTL" envDefault:"1h"`

	OpenAIKey        string  `env:"OPENAI_API_KEY"`
	OpenAIModel      string  `env:"OPENAI_MODEL"`
	OpenAIEmbedModel string  `env:"OPENAI_EMBED_MODEL"`
	OpenAIBaseURL    string  `env:"OPENAI_BASE_URL"`
	OpenAIRPS        float64 `env:"OPENAI_RPS" envDefault:"5"`
	YouTubeKey       string  `env:"YOUTUBE_API_KEY"`

	PopularInterval time.Duration `env:"SCHEDULER_POPULAR_INTERVAL" envDefault:"15m"`
	PrewarmInterval time.Duration `env:"SCHEDULER_PREWARM_INTERVAL" envDefault:"30m"`
	EvictInterval   time.Duration `env:"SCHEDULER_EVICT_INTERVAL" envDefault:"1h"`
	PopularTopN     int           `env:"POPULAR_TOPICS_LIMIT" envDefault:"10"`
	PrewarmTopics   int           `env:"PREWARM_TOPICS" envDefault:"3"`

	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"mindfeed"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	OtelInsecure    bool    `env:"OTEL_INSECURE" envDefault:"true"`
}

// LoadConfig reads the environment and rejects values the runtime cannot work with.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.GenerationLease <= 0 {
		return fmt.Errorf("GENERATION_LEASE must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	// a task record must outlive the lock guarding its generation
	if c.TaskRetention < c.GenerationLease {
		return fmt.Errorf("TASK_RETENTION (%s) shorter than GENERATION_LEASE (%s)", c.TaskRetention, c.GenerationLease)
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mindfeed-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mindfeed-backend/internal/http/middleware"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	TracingEnabled bool

	FeedHandler    *httpH.FeedHandler
	ContentHandler *httpH.ContentHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Messages and generation tasks
		if cfg.FeedHandler != nil {
			api.POST("/messages", cfg.FeedHandler.SubmitMessage)
			api.GET("/tasks/:id", cfg.FeedHandler.GetTaskStatus)
			api.GET("/users/:id/topic", cfg.FeedHandler.GetUserTopic)
			api.POST("/users/:id/topic/refresh", cfg.FeedHandler.RefreshUserTopic)
		}

		// Content
		if cfg.ContentHandler != nil {
			api.GET("/content", cfg.ContentHandler.GetContent)
			api.GET("/content/daily-quote", cfg.ContentHandler.DailyQuote)
			api.GET("/topics/popular", cfg.ContentHandler.PopularTopics)
			api.GET("/videos/quota", cfg.ContentHandler.VideoQuota)
			api.POST("/videos/quota/reset", cfg.ContentHandler.ResetVideoQuota)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}

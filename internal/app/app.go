package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/data/db"
	"github.com/yungbote/mindfeed-backend/internal/generation"
	apihttp "github.com/yungbote/mindfeed-backend/internal/http"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apihttp.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})
	metrics := observability.NewMetrics()

	dbService, err := db.Open(log, db.Config{Driver: cfg.DBDriver, DSN: cfg.DSN})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log)

	seeded, err := generation.SeedQuotes(dbctx.Context{Ctx: ctx}, reposet.ContentItem, log)
	if err != nil {
		log.Warn("quote seeding failed", "error", err)
	} else if seeded > 0 {
		log.Info("seeded quotes", "count", seeded)
	}

	serviceset, err := wireServices(theDB, log, cfg, clients, reposet, metrics)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, serviceset)

	server := apihttp.NewServer(apihttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		ServiceName:    cfg.OtelServiceName,
		TracingEnabled: cfg.OtelEnabled,
		FeedHandler:    handlerset.Feed,
		ContentHandler: handlerset.Content,
		HealthHandler:  handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	return a.Server.Run(ctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
}

// RunWorker consumes generation units until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	a.Services.Worker.Start(ctx)
	<-ctx.Done()
	a.Services.Worker.Wait()
	return nil
}

// RunScheduler runs the maintenance jobs until ctx is cancelled.
func (a *App) RunScheduler(ctx context.Context) error {
	a.Services.Scheduler.Start(ctx)
	<-ctx.Done()
	a.Services.Scheduler.Wait()
	return nil
}

// RunAll runs every role in one process. This is the only valid mode when the
// store is in-process.
func (a *App) RunAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.RunWorker(gctx) })
	g.Go(func() error { return a.RunScheduler(gctx) })
	g.Go(func() error { return a.Serve(gctx) })
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

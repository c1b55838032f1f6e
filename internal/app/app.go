package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/db"
	"github.com/yungbote/rejap-backend/internal/http"
	"github.com/yungbote/rejap-backend/internal/learning/seed"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/cache"
	"github.com/yungbote/rejap-backend/internal/platform/envutil"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	cache        cache.Cache
	scheduler    *prewarmScheduler
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	LoadDotEnv()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if isProduction(cfg.LogMode) {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, log)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	contentCache := cache.New(log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, contentCache, provider)
	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		dbService:    dbService,
		cache:        contentCache,
		scheduler:    newPrewarmScheduler(log, serviceset.Quiz, cfg.QuizPrewarmBatch),
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background collectors and the prewarm job.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartCacheCollector(ctx, a.Log, a.cache)
	if err := a.scheduler.Start(ctx, a.Cfg.QuizPrewarmInterval); err != nil {
		return fmt.Errorf("start prewarm scheduler: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + strings.TrimPrefix(a.Cfg.Port, ":")
	a.Log.Info("server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func isProduction(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true
	}
	return false
}

func (a *App) Migrate() error {
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return err
	}
	a.Log.Info("schema migrated")
	return nil
}

// Seed loads the curriculum at path, or the embedded default when path is empty.
func (a *App) Seed(ctx context.Context, path string) (seed.Result, error) {
	var (
		c   *seed.Curriculum
		err error
	)
	if path == "" {
		c, err = seed.Default()
	} else {
		c, err = seed.Load(path)
	}
	if err != nil {
		return seed.Result{}, err
	}
	return a.Services.Seeder.Apply(ctx, c)
}

func (a *App) Prewarm(ctx context.Context, batch int) (services.PrewarmResult, error) {
	if batch <= 0 {
		batch = a.Cfg.QuizPrewarmBatch
	}
	return a.Services.Quiz.PrewarmEmpty(ctx, batch)
}

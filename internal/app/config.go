package app

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/rejap-backend/internal/data/db"
	"github.com/yungbote/rejap-backend/internal/platform/envutil"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	Environment string
	Version     string

	DB          db.Config
	AutoMigrate bool

	JWTSecretKey string
	JWTIssuer    string

	LLM                 llm.Config
	FeedbackConcurrency int

	ContentCacheTTL time.Duration

	QuizPrewarmInterval time.Duration
	QuizPrewarmBatch    int

	MetricsEnabled bool
}

// LoadDotEnv loads .env (or the given files) into the process environment.
// A missing file is not an error; variables already set win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "rejap-api"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		DB: db.Config{
			Driver:       envutil.String("DB_DRIVER", "postgres"),
			Host:         envutil.String("POSTGRES_HOST", "localhost"),
			Port:         envutil.String("POSTGRES_PORT", "5432"),
			User:         envutil.String("POSTGRES_USER", "postgres"),
			Password:     envutil.String("POSTGRES_PASSWORD", ""),
			Name:         envutil.String("POSTGRES_NAME", "rejap"),
			SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:   envutil.String("SQLITE_PATH", ""),
			MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),

		LLM:                 llm.ConfigFromEnv(),
		FeedbackConcurrency: envutil.Int("FEEDBACK_CONCURRENCY", services.DefaultFeedbackConcurrency),

		ContentCacheTTL: envutil.Duration("CONTENT_CACHE_TTL", 10*time.Minute),

		QuizPrewarmInterval: envutil.Duration("QUIZ_PREWARM_INTERVAL", 0),
		QuizPrewarmBatch:    envutil.Int("QUIZ_PREWARM_BATCH", 10),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is not set; every /api request will be rejected")
	}
	log.Info("config loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"llm_provider", cfg.LLM.Provider,
		"feedback_concurrency", cfg.FeedbackConcurrency,
		"quiz_prewarm_interval", cfg.QuizPrewarmInterval.String(),
	)
	return cfg
}

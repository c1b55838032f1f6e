package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/rejap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/rejap-backend/internal/http/middleware"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler  *httpH.HealthHandler
	ContentHandler *httpH.ContentHandler
	QuizHandler    *httpH.QuizHandler
	UserHandler    *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Content hierarchy
	if cfg.ContentHandler != nil {
		api.GET("/levels", cfg.ContentHandler.ListLevels)
		api.GET("/modules", cfg.ContentHandler.ListModules)
		api.GET("/content", cfg.ContentHandler.ListContent)
	}

	// Quizzes and placement
	if cfg.QuizHandler != nil {
		api.GET("/quiz", cfg.QuizHandler.GetQuiz)
		api.POST("/quiz/submit", cfg.QuizHandler.SubmitQuiz)
		api.GET("/quiz/diagnostic", cfg.QuizHandler.GetDiagnostic)
		api.POST("/quiz/diagnostic", cfg.QuizHandler.SubmitDiagnostic)
	}

	// User
	if cfg.UserHandler != nil {
		api.GET("/user/me", cfg.UserHandler.GetMe)
		api.GET("/user/progress", cfg.UserHandler.GetProgress)
		api.GET("/user/learning-path", cfg.UserHandler.GetLearningPath)
	}

	return r
}

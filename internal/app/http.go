package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/http"
	httpH "github.com/yungbote/rejap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/rejap-backend/internal/http/middleware"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Content *httpH.ContentHandler
	Quiz    *httpH.QuizHandler
	User    *httpH.UserHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		Content: httpH.NewContentHandler(services.Content),
		Quiz:    httpH.NewQuizHandler(services.Quiz, services.Submission, services.Diagnostic),
		User:    httpH.NewUserHandler(services.User),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		Metrics:        metrics,
		AuthMiddleware: middleware.Auth,
		HealthHandler:  handlers.Health,
		ContentHandler: handlers.Content,
		QuizHandler:    handlers.Quiz,
		UserHandler:    handlers.User,
	})
}

package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/learning/seed"
	"github.com/yungbote/rejap-backend/internal/platform/cache"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

type Services struct {
	Content     services.ContentService
	Tutor       services.TutorService
	Quiz        services.QuizService
	Progression services.ProgressionService
	Submission  services.SubmissionService
	Diagnostic  services.DiagnosticService
	User        services.UserService
	Auth        services.AuthService

	Seeder *seed.Seeder
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, contentCache cache.Cache, provider llm.Provider) Services {
	log.Info("Wiring services...")
	if !llm.IsConfigured(provider) {
		log.Warn("no AI provider configured; quizzes cannot be generated and feedback uses fallbacks")
	}

	content := services.NewContentService(db, log, r.Level, r.Module, r.ContentItem, contentCache, cfg.ContentCacheTTL)
	tutor := services.NewTutorService(log, provider, cfg.LLM.Timeout)
	quiz := services.NewQuizService(db, log, content, tutor, r.Quiz, r.QuizQuestion)
	progression := services.NewProgressionService(db, log, r.User, r.Level, r.ModuleProgress, r.LevelStatus)
	submission := services.NewSubmissionService(db, log, services.SubmissionDeps{
		Content:     content,
		Tutor:       tutor,
		Progression: progression,
		Quizzes:     r.Quiz,
		Questions:   r.QuizQuestion,
		Attempts:    r.QuizAttempt,
		Answers:     r.UserAnswer,
		Feedback:    r.AIFeedback,
		ModuleProg:  r.ModuleProgress,
	}, cfg.FeedbackConcurrency)
	diagnostic := services.NewDiagnosticService(db, log, services.DiagnosticDeps{
		Users:       r.User,
		Levels:      r.Level,
		Modules:     r.Module,
		Quizzes:     r.Quiz,
		Questions:   r.QuizQuestion,
		ModuleProg:  r.ModuleProgress,
		LevelStatus: r.LevelStatus,
	})
	user := services.NewUserService(db, log, r.User, r.Level, r.Module, r.ModuleProgress, r.LevelStatus)
	auth := services.NewAuthService(log, user, cfg.JWTSecretKey, cfg.JWTIssuer)

	return Services{
		Content:     content,
		Tutor:       tutor,
		Quiz:        quiz,
		Progression: progression,
		Submission:  submission,
		Diagnostic:  diagnostic,
		User:        user,
		Auth:        auth,
		Seeder:      seed.NewSeeder(db, log, r.Level, r.Module, r.ContentItem, r.Quiz, content),
	}
}

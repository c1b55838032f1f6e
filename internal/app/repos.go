package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type Repos struct {
	User repos.UserRepo

	Level        repos.LevelRepo
	Module       repos.ModuleRepo
	ContentItem  repos.ContentItemRepo
	Quiz         repos.QuizRepo
	QuizQuestion repos.QuizQuestionRepo

	QuizAttempt    repos.QuizAttemptRepo
	UserAnswer     repos.UserAnswerRepo
	AIFeedback     repos.AIFeedbackRepo
	ModuleProgress repos.ModuleProgressRepo
	LevelStatus    repos.LevelStatusRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User: repos.NewUserRepo(db, log),

		Level:        repos.NewLevelRepo(db, log),
		Module:       repos.NewModuleRepo(db, log),
		ContentItem:  repos.NewContentItemRepo(db, log),
		Quiz:         repos.NewQuizRepo(db, log),
		QuizQuestion: repos.NewQuizQuestionRepo(db, log),

		QuizAttempt:    repos.NewQuizAttemptRepo(db, log),
		UserAnswer:     repos.NewUserAnswerRepo(db, log),
		AIFeedback:     repos.NewAIFeedbackRepo(db, log),
		ModuleProgress: repos.NewModuleProgressRepo(db, log),
		LevelStatus:    repos.NewLevelStatusRepo(db, log),
	}
}

package repos

import (
	"github.com/yungbote/rejap-backend/internal/data/repos/content"
	"github.com/yungbote/rejap-backend/internal/data/repos/progress"
	"github.com/yungbote/rejap-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo

type LevelRepo = content.LevelRepo
type ModuleRepo = content.ModuleRepo
type ContentItemRepo = content.ContentItemRepo
type QuizRepo = content.QuizRepo
type QuizQuestionRepo = content.QuizQuestionRepo

type QuizAttemptRepo = progress.QuizAttemptRepo
type UserAnswerRepo = progress.UserAnswerRepo
type AIFeedbackRepo = progress.AIFeedbackRepo
type ModuleProgressRepo = progress.ModuleProgressRepo
type LevelStatusRepo = progress.LevelStatusRepo

var (
	NewUserRepo = user.NewUserRepo

	NewLevelRepo        = content.NewLevelRepo
	NewModuleRepo       = content.NewModuleRepo
	NewContentItemRepo  = content.NewContentItemRepo
	NewQuizRepo         = content.NewQuizRepo
	NewQuizQuestionRepo = content.NewQuizQuestionRepo

	NewQuizAttemptRepo    = progress.NewQuizAttemptRepo
	NewUserAnswerRepo     = progress.NewUserAnswerRepo
	NewAIFeedbackRepo     = progress.NewAIFeedbackRepo
	NewModuleProgressRepo = progress.NewModuleProgressRepo
	NewLevelStatusRepo    = progress.NewLevelStatusRepo
)

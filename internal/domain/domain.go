package domain

import (
	"github.com/yungbote/rejap-backend/internal/domain/content"
	"github.com/yungbote/rejap-backend/internal/domain/progress"
	"github.com/yungbote/rejap-backend/internal/domain/user"
)

type User = user.User

type Level = content.Level
type Module = content.Module
type ContentItem = content.ContentItem
type Quiz = content.Quiz
type QuizQuestion = content.QuizQuestion

type UserQuizAttempt = progress.UserQuizAttempt
type AttemptAnswer = progress.AttemptAnswer
type UserAnswer = progress.UserAnswer
type AIFeedback = progress.AIFeedback
type UserModuleProgress = progress.UserModuleProgress
type UserLevelStatus = progress.UserLevelStatus

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Level{},
		&Module{},
		&ContentItem{},
		&Quiz{},
		&QuizQuestion{},
		&UserQuizAttempt{},
		&UserAnswer{},
		&AIFeedback{},
		&UserModuleProgress{},
		&UserLevelStatus{},
	}
}

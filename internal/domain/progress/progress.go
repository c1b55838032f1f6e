package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptAnswer is one entry of the result snapshot stored on an attempt.
type AttemptAnswer struct {
	QuestionID    uuid.UUID `json:"questionId"`
	UserAnswer    string    `json:"userAnswer"`
	CorrectAnswer string    `json:"correctAnswer"`
	Correct       bool      `json:"correct"`
}

// UserQuizAttempt is append-only: one row per submission.
type UserQuizAttempt struct {
	ID          uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID                          `gorm:"type:uuid;not null;index" json:"userId"`
	QuizID      uuid.UUID                          `gorm:"type:uuid;not null;index" json:"quizId"`
	Score       float64                            `gorm:"not null;column:score" json:"score"`
	Answers     datatypes.JSONSlice[AttemptAnswer] `gorm:"column:answers" json:"answers"`
	Completed   bool                               `gorm:"not null;column:completed" json:"completed"`
	CompletedAt *time.Time                         `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time                          `gorm:"not null" json:"createdAt"`
}

func (UserQuizAttempt) TableName() string { return "user_quiz_attempt" }

func (a *UserQuizAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

type UserAnswer struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"attemptId"`
	QuestionID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"questionId"`
	UserAnswer   string     `gorm:"column:user_answer" json:"userAnswer"`
	IsCorrect    bool       `gorm:"not null;column:is_correct" json:"isCorrect"`
	AIFeedbackID *uuid.UUID `gorm:"type:uuid;column:ai_feedback_id" json:"aiFeedbackId,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"createdAt"`
}

func (UserAnswer) TableName() string { return "user_answer" }

func (a *UserAnswer) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// AIFeedback exists only for incorrect answers.
type AIFeedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AnswerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"answerId"`
	Feedback    string    `gorm:"not null;column:feedback" json:"feedback"`
	Explanation string    `gorm:"column:explanation" json:"explanation"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

func (AIFeedback) TableName() string { return "ai_feedback" }

func (f *AIFeedback) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// UserModuleProgress is the durable unlock/score state of one module for one user.
// Progress holds the best score ever achieved.
type UserModuleProgress struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_user_module,priority:1" json:"userId"`
	ModuleID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_user_module,priority:2" json:"moduleId"`
	Completed   bool       `gorm:"not null;column:completed" json:"completed"`
	Progress    float64    `gorm:"not null;column:progress" json:"progress"`
	Unlocked    bool       `gorm:"not null;column:unlocked" json:"unlocked"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

func (UserModuleProgress) TableName() string { return "user_module_progress" }

func (p *UserModuleProgress) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// UserLevelStatus rows are absent for locked levels.
type UserLevelStatus struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_level_status_user_level,priority:1" json:"userId"`
	LevelID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_level_status_user_level,priority:2" json:"levelId"`
	Unlocked    bool       `gorm:"not null;column:unlocked" json:"unlocked"`
	Completed   bool       `gorm:"not null;column:completed" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

func (UserLevelStatus) TableName() string { return "user_level_status" }

func (s *UserLevelStatus) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

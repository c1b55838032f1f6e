package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Level is a top-level curriculum stage. Order is 1-based and unique.
type Level struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;uniqueIndex:idx_level_order" json:"order"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (Level) TableName() string { return "level" }

func (l *Level) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

type Module struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LevelID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_level_order,priority:1" json:"levelId"`
	Level       *Level    `gorm:"foreignKey:LevelID;constraint:OnDelete:CASCADE" json:"level,omitempty"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;uniqueIndex:idx_module_level_order,priority:2" json:"order"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (Module) TableName() string { return "module" }

func (m *Module) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type ContentItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_module_order,priority:1" json:"moduleId"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Content   string    `gorm:"not null;column:content" json:"content"`
	Type      string    `gorm:"not null;column:type;default:vocabulary" json:"type"`
	Order     int       `gorm:"column:sort_order;not null;uniqueIndex:idx_content_module_order,priority:2" json:"order"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (ContentItem) TableName() string { return "content_item" }

func (ci *ContentItem) BeforeCreate(*gorm.DB) error {
	ensureID(&ci.ID)
	return nil
}

// Quiz is the single assessment attached to a module.
type Quiz struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_module" json:"moduleId"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (Quiz) TableName() string { return "quiz" }

func (q *Quiz) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// QuizQuestion rows are written once per quiz and never regenerated.
// CorrectAnswer is excluded from JSON; responses that reveal it do so explicitly.
type QuizQuestion struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID        uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_question_quiz_order,priority:1" json:"quizId"`
	Question      string                      `gorm:"not null;column:question" json:"question"`
	Options       datatypes.JSONSlice[string] `gorm:"column:options" json:"options"`
	CorrectAnswer string                      `gorm:"not null;column:correct_answer" json:"-"`
	Order         int                         `gorm:"column:sort_order;not null;uniqueIndex:idx_question_quiz_order,priority:2" json:"order"`
	CreatedAt     time.Time                   `gorm:"not null" json:"createdAt"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

func (qq *QuizQuestion) BeforeCreate(*gorm.DB) error {
	ensureID(&qq.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

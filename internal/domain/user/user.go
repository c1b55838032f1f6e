package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local projection of an identity-provider subject.
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AuthSubject    string     `gorm:"not null;uniqueIndex;column:auth_subject" json:"-"`
	Email          string     `gorm:"column:email" json:"email"`
	Name           string     `gorm:"column:name" json:"name"`
	ProfileImage   string     `gorm:"column:profile_image" json:"profileImage"`
	CurrentLevelID *uuid.UUID `gorm:"type:uuid;column:current_level_id" json:"currentLevelId"`
	CreatedAt      time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

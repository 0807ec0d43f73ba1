package types

import (
	"time"

	"github.com/google/uuid"
)

type VideoProgress struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_video,unique" json:"user_id"`
	User           *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID       uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_video,unique" json:"lesson_id"`
	Lesson         *Lesson   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	WatchedSeconds float64   `gorm:"column:watched_seconds;not null;default:0" json:"watched_seconds"`
	Percent        float64   `gorm:"column:percent;not null;default:0" json:"percent"`
	IsCompleted    bool      `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VideoProgress) TableName() string { return "video_progress" }

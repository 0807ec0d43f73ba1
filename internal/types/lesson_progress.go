package types

import (
	"time"

	"github.com/google/uuid"
)

type LessonProgress struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_lesson,unique" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_lesson,unique" json:"lesson_id"`
	Lesson      *Lesson    `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Completed   bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

package types

import (
	"time"

	"github.com/google/uuid"
)

// CourseKey repeats the course id as a string, or "" for threads not tied to a
// course, so the three-column unique index holds for null-course conversations.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	InstructorID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_instructor_student_course,unique" json:"instructor_id"`
	Instructor    *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`
	StudentID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_instructor_student_course,unique" json:"student_id"`
	Student       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	CourseKey     string     `gorm:"column:course_key;not null;default:'';index:idx_instructor_student_course,unique" json:"-"`
	CourseID      *uuid.UUID `gorm:"type:uuid;index" json:"course_id,omitempty"`
	LastMessageAt time.Time  `gorm:"column:last_message_at;not null;default:now();index" json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

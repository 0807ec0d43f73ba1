package types

import (
	"time"

	"github.com/google/uuid"
)

// Position is 1-based and kept dense per course: after any delete or reorder
// the chapters of a course occupy 1..n with no gaps.
type Chapter struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index:idx_course_position,unique" json:"course_id"`
	Course    *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Position  int       `gorm:"column:position;not null;index:idx_course_position,unique" json:"position"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chapter) TableName() string { return "chapter" }

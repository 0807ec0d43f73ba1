package types

import (
	"time"

	"github.com/google/uuid"
)

type Lesson struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChapterID       uuid.UUID `gorm:"type:uuid;not null;index:idx_chapter_position,unique" json:"chapter_id"`
	Chapter         *Chapter  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"chapter,omitempty"`
	Title           string    `gorm:"column:title;not null" json:"title"`
	Position        int       `gorm:"column:position;not null;index:idx_chapter_position,unique" json:"position"`
	IsFree          bool      `gorm:"column:is_free;not null;default:false" json:"is_free"`
	VideoURL        string    `gorm:"column:video_url" json:"video_url"`
	VideoBucketKey  string    `gorm:"column:video_bucket_key" json:"-"`
	DurationSeconds float64   `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

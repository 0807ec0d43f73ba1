package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Description string         `gorm:"column:description" json:"description"`
	Price       float64        `gorm:"column:price;type:numeric(10,2);not null;default:0" json:"price"`
	PriceRef    string         `gorm:"column:price_ref" json:"-"`
	Category    string         `gorm:"column:category" json:"category"`
	Level       CourseLevel    `gorm:"column:level;not null;default:'beginner'" json:"level"`
	Status      CourseStatus   `gorm:"column:status;not null;default:'draft';index" json:"status"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

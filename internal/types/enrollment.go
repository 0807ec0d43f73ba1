package types

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// The unique (user_id, course_id) index is the idempotency key for webhook
// replays; there is no separate dedup table.
type Enrollment struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"user_id"`
	User        *User            `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"course_id"`
	Course      *Course          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Status      EnrollmentStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Amount      float64          `gorm:"column:amount;type:numeric(10,2);not null;default:0" json:"amount"`
	ActivatedAt *time.Time       `gorm:"column:activated_at" json:"activated_at,omitempty"`
	CreatedAt   time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

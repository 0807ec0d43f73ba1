package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser       UserRole = "USER"
	RoleStudent    UserRole = "STUDENT"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleAdmin      UserRole = "ADMIN"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExternalID        string         `gorm:"uniqueIndex;not null;column:external_id" json:"external_id"`
	Email             string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Name              string         `gorm:"column:name" json:"name"`
	Role              UserRole       `gorm:"column:role;not null;default:'USER'" json:"role"`
	IsBanned          bool           `gorm:"column:is_banned;not null;default:false" json:"is_banned"`
	AvatarBucketKey   string         `gorm:"column:avatar_bucket_key" json:"avatar_bucket_key"`
	AvatarURL         string         `gorm:"column:avatar_url" json:"avatar_url"`
	BillingCustomerID string         `gorm:"column:billing_customer_id" json:"-"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

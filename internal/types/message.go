package types

import (
	"time"

	"github.com/google/uuid"
)

// Messages are immutable once created. A nil SenderID marks a system-authored
// message (the enrollment welcome seed).
type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	SenderID       *uuid.UUID    `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	Body           string        `gorm:"column:body;not null" json:"body"`
	CreatedAt      time.Time     `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string { return "message" }

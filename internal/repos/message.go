package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error)
	CountByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (int64, error)
	ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(messages) == 0 {
		return []*types.Message{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) CountByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepo) ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Message
	if conversationID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

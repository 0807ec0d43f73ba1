package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type ConversationRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error)
	GetByParticipants(ctx context.Context, tx *gorm.DB, instructorID, studentID uuid.UUID, courseKey string) (*types.Conversation, error)
	// CreateIfAbsent inserts the thread keyed by (instructor, student,
	// course_key); an existing row is left untouched and reported.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Conversation) (CreateOutcome, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Conversation, error)
	TouchLastMessageAt(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, at time.Time) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	repoLog := baseLog.With("repo", "ConversationRepo")
	return &conversationRepo{db: db, log: repoLog}
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Conversation
	err := transaction.WithContext(ctx).
		Where("id = ?", conversationID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *conversationRepo) GetByParticipants(ctx context.Context, tx *gorm.DB, instructorID, studentID uuid.UUID, courseKey string) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Conversation
	err := transaction.WithContext(ctx).
		Where("instructor_id = ? AND student_id = ? AND course_key = ?", instructorID, studentID, courseKey).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *conversationRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Conversation) (CreateOutcome, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return OutcomeAlreadyExists, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	result := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instructor_id"}, {Name: "student_id"}, {Name: "course_key"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return OutcomeAlreadyExists, result.Error
	}
	if result.RowsAffected == 0 {
		return OutcomeAlreadyExists, nil
	}
	return OutcomeCreated, nil
}

func (r *conversationRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Conversation
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("instructor_id = ? OR student_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *conversationRepo) TouchLastMessageAt(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", at).Error
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type VideoProgressRepo interface {
	GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.VideoProgress, error)
	GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.VideoProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.VideoProgress) error
}

type videoProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoProgressRepo(db *gorm.DB, baseLog *logger.Logger) VideoProgressRepo {
	repoLog := baseLog.With("repo", "VideoProgressRepo")
	return &videoProgressRepo{db: db, log: repoLog}
}

func (r *videoProgressRepo) GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.VideoProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *videoProgressRepo) GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoProgress
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.VideoProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", row.UserID, row.LessonID).
		Assign(map[string]any{
			"watched_seconds": row.WatchedSeconds,
			"percent":         row.Percent,
			"is_completed":    row.IsCompleted,
		}).
		FirstOrCreate(row).Error
}

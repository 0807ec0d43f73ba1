package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type LessonProgressRepo interface {
	GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error)
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.LessonProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.LessonProgress) error
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	repoLog := baseLog.With("repo", "LessonProgressRepo")
	return &lessonProgressRepo{db: db, log: repoLog}
}

func (r *lessonProgressRepo) GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LessonProgress
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

func (r *lessonProgressRepo) GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonProgress
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

func (r *lessonProgressRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonProgress
	if userID == uuid.Nil || courseID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.LessonProgress) error {
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
			"course_id":    row.CourseID,
			"completed":    row.Completed,
			"completed_at": row.CompletedAt,
		}).
		FirstOrCreate(row).Error
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Course, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Course, error)
	ListPublished(ctx context.Context, tx *gorm.DB, category string) ([]*types.Course, error)
	SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, fields map[string]any) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, status types.CourseStatus) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courses) == 0 {
		return []*types.Course{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
	err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *courseRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListPublished(ctx context.Context, tx *gorm.DB, category string) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("status = ?", types.CoursePublished)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var results []*types.Course
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) SlugExists(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(fields).Error
}

func (r *courseRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, status types.CourseStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Update("status", status).Error
}

func (r *courseRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", courseIDs).
		Delete(&types.Course{}).Error
}

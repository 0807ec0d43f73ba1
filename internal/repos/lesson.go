package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type LessonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error)
	GetByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Lesson, error)
	MaxPosition(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (int, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, fields map[string]any) error
	DeleteAndRenumber(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error
	FullDeleteByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Lesson
	err := transaction.WithContext(ctx).
		Where("id = ?", lessonID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lessonRepo) GetByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if len(chapterIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("chapter_id IN ?", chapterIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) MaxPosition(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var max int
	if err := transaction.WithContext(ctx).
		Model(&types.Lesson{}).
		Where("chapter_id = ?", chapterID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *lessonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Lesson{}).
		Where("id = ?", lessonID).
		Updates(fields).Error
}

func (r *lessonRepo) DeleteAndRenumber(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var lesson types.Lesson
		if err := txn.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
			return err
		}
		if err := txn.Where("id = ?", lessonID).Delete(&types.Lesson{}).Error; err != nil {
			return err
		}

		var remaining []*types.Lesson
		if err := txn.
			Where("chapter_id = ?", lesson.ChapterID).
			Order("position ASC").
			Find(&remaining).Error; err != nil {
			return err
		}
		if err := txn.Model(&types.Lesson{}).
			Where("chapter_id = ?", lesson.ChapterID).
			Update("position", gorm.Expr("position + 1000000")).Error; err != nil {
			return err
		}
		for i, l := range remaining {
			if err := txn.Model(&types.Lesson{}).
				Where("id = ?", l.ID).
				Update("position", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *lessonRepo) FullDeleteByChapterIDs(ctx context.Context, tx *gorm.DB, chapterIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(chapterIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("chapter_id IN ?", chapterIDs).
		Delete(&types.Lesson{}).Error
}

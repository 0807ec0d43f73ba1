package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type ChapterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error)
	GetByID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (*types.Chapter, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error)
	MaxPosition(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, title string) error
	// DeleteAndRenumber removes the chapter and closes the position gap so the
	// remaining chapters of the course occupy 1..n in their original order.
	DeleteAndRenumber(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error
	// Reorder rewrites positions to match orderedIDs (1-based).
	Reorder(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, orderedIDs []uuid.UUID) error
	FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type chapterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	repoLog := baseLog.With("repo", "ChapterRepo")
	return &chapterRepo{db: db, log: repoLog}
}

func (r *chapterRepo) Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(chapters) == 0 {
		return []*types.Chapter{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&chapters).Error; err != nil {
		return nil, err
	}
	return chapters, nil
}

func (r *chapterRepo) GetByID(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) (*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Chapter
	err := transaction.WithContext(ctx).
		Where("id = ?", chapterID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *chapterRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Chapter
	if courseID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chapterRepo) MaxPosition(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var max int
	if err := transaction.WithContext(ctx).
		Model(&types.Chapter{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *chapterRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID, title string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Chapter{}).
		Where("id = ?", chapterID).
		Update("title", title).Error
}

func (r *chapterRepo) DeleteAndRenumber(ctx context.Context, tx *gorm.DB, chapterID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var chapter types.Chapter
		if err := txn.Where("id = ?", chapterID).First(&chapter).Error; err != nil {
			return err
		}
		if err := txn.Where("id = ?", chapterID).Delete(&types.Chapter{}).Error; err != nil {
			return err
		}
		return renumberChapters(txn, chapter.CourseID)
	})
}

func (r *chapterRepo) Reorder(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, orderedIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(orderedIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		// Shift out of range first so the (course_id, position) unique index
		// never trips mid-rewrite.
		if err := txn.Model(&types.Chapter{}).
			Where("course_id = ?", courseID).
			Update("position", gorm.Expr("position + 1000000")).Error; err != nil {
			return err
		}
		for i, id := range orderedIDs {
			if err := txn.Model(&types.Chapter{}).
				Where("id = ? AND course_id = ?", id, courseID).
				Update("position", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *chapterRepo) FullDeleteByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&types.Chapter{}).Error
}

func renumberChapters(txn *gorm.DB, courseID uuid.UUID) error {
	var remaining []*types.Chapter
	if err := txn.
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&remaining).Error; err != nil {
		return err
	}
	if err := txn.Model(&types.Chapter{}).
		Where("course_id = ?", courseID).
		Update("position", gorm.Expr("position + 1000000")).Error; err != nil {
		return err
	}
	for i, ch := range remaining {
		if err := txn.Model(&types.Chapter{}).
			Where("id = ?", ch.ID).
			Update("position", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}

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

// CreateOutcome tags the result of an idempotent create so callers branch on
// an explicit value instead of catching unique-violation errors.
type CreateOutcome int

const (
	OutcomeCreated CreateOutcome = iota
	OutcomeAlreadyExists
)

type EnrollmentRepo interface {
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Enrollment, error)
	GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Enrollment, error)
	CountActiveByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)
	// UpsertPending creates or resets the (user, course) row to PENDING with
	// the given amount. An ACTIVE row is left untouched.
	UpsertPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, amount float64) (*types.Enrollment, error)
	// CreateIfAbsent inserts the row, reporting OutcomeAlreadyExists when the
	// (user_id, course_id) unique index already holds a row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Enrollment) (CreateOutcome, error)
	// Activate promotes the row to ACTIVE with the captured amount; rows
	// already ACTIVE report zero rows affected.
	Activate(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, amount float64, at time.Time) (int64, error)
	// CancelIfPending flips PENDING → CANCELLED, reporting rows affected.
	CancelIfPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (int64, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (r *enrollmentRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Enrollment
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *enrollmentRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Enrollment
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) GetByCourseIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Enrollment
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) CountActiveByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, types.EnrollmentActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *enrollmentRepo) UpsertPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, amount float64) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.GetByUserAndCourse(ctx, transaction, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == types.EnrollmentActive {
			return existing, nil
		}
		if err := transaction.WithContext(ctx).
			Model(&types.Enrollment{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"status": types.EnrollmentPending,
				"amount": amount,
			}).Error; err != nil {
			return nil, err
		}
		existing.Status = types.EnrollmentPending
		existing.Amount = amount
		return existing, nil
	}

	row := &types.Enrollment{
		ID:       uuid.New(),
		UserID:   userID,
		CourseID: courseID,
		Status:   types.EnrollmentPending,
		Amount:   amount,
	}
	outcome, err := r.CreateIfAbsent(ctx, transaction, row)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeAlreadyExists {
		// Lost a race with a concurrent initiate; reuse the winner's row.
		return r.GetByUserAndCourse(ctx, transaction, userID, courseID)
	}
	return row, nil
}

func (r *enrollmentRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Enrollment) (CreateOutcome, error) {
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
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
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

func (r *enrollmentRepo) Activate(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, amount float64, at time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ? AND status <> ?", enrollmentID, types.EnrollmentActive).
		Updates(map[string]any{
			"status":       types.EnrollmentActive,
			"amount":       amount,
			"activated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *enrollmentRepo) CancelIfPending(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, types.EnrollmentPending).
		Update("status", types.EnrollmentCancelled)
	return result.RowsAffected, result.Error
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.User, error)
	UpsertByExternalID(ctx context.Context, tx *gorm.DB, user *types.User) error
	UpdateRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.UserRole) error
	UpdateBanned(ctx context.Context, tx *gorm.DB, userID uuid.UUID, banned bool) error
	UpdateBillingCustomerID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, customerID string) error
	UpdateAvatarFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bucketKey, avatarURL string) error
	SoftDeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(users) == 0 {
		return []*types.User{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.User
	err := transaction.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userRepo) UpsertByExternalID(ctx context.Context, tx *gorm.DB, user *types.User) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if user == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("external_id = ?", user.ExternalID).
		Assign(map[string]any{
			"email": user.Email,
			"name":  user.Name,
		}).
		FirstOrCreate(user).Error
}

func (r *userRepo) UpdateRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.UserRole) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("role", role).Error
}

func (r *userRepo) UpdateBanned(ctx context.Context, tx *gorm.DB, userID uuid.UUID, banned bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("is_banned", banned).Error
}

func (r *userRepo) UpdateBillingCustomerID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, customerID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("billing_customer_id", customerID).Error
}

func (r *userRepo) UpdateAvatarFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bucketKey, avatarURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"avatar_bucket_key": bucketKey,
			"avatar_url":        avatarURL,
		}).Error
}

func (r *userRepo) SoftDeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("external_id = ?", externalID).
		Delete(&types.User{}).Error
}

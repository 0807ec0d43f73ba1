package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/authz"
	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/types"
)

type UserService interface {
	// ChangeRole is admin-gated. An ADMIN row can never be moved off ADMIN,
	// not even by another admin or by themselves.
	ChangeRole(ctx context.Context, targetID uuid.UUID, role types.UserRole) error
	// SetBanned is admin-gated; an ADMIN can never be banned.
	SetBanned(ctx context.Context, targetID uuid.UUID, banned bool) error
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := baseLog.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (s *userService) ChangeRole(ctx context.Context, targetID uuid.UUID, role types.UserRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrBadRequest, role)
	}

	caller, target, err := s.loadCallerAndTarget(ctx, targetID)
	if err != nil {
		return err
	}

	decision := authz.Decide(caller, authz.Resource{
		Kind:       "user",
		TargetRole: target.Role,
	}, authz.ActionChangeRole)
	if !decision.Allowed {
		if target.Role == types.RoleAdmin {
			// Surfaced as a validation failure: the row must stay untouched.
			return fmt.Errorf("%w: %s", ErrBadRequest, decision.Reason)
		}
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}

	if err := s.userRepo.UpdateRole(ctx, nil, targetID, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	s.log.Info("Role changed", "target_id", targetID, "role", role)
	return nil
}

func (s *userService) SetBanned(ctx context.Context, targetID uuid.UUID, banned bool) error {
	caller, target, err := s.loadCallerAndTarget(ctx, targetID)
	if err != nil {
		return err
	}

	decision := authz.Decide(caller, authz.Resource{
		Kind:       "user",
		TargetRole: target.Role,
	}, authz.ActionBan)
	if !decision.Allowed {
		if target.Role == types.RoleAdmin {
			return fmt.Errorf("%w: %s", ErrBadRequest, decision.Reason)
		}
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}

	if err := s.userRepo.UpdateBanned(ctx, nil, targetID, banned); err != nil {
		return fmt.Errorf("update ban state: %w", err)
	}
	s.log.Info("Ban state changed", "target_id", targetID, "banned", banned)
	return nil
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return users[0], nil
}

func (s *userService) loadCallerAndTarget(ctx context.Context, targetID uuid.UUID) (authz.Caller, *types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return authz.Caller{}, nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{targetID})
	if err != nil {
		return authz.Caller{}, nil, fmt.Errorf("load target user: %w", err)
	}
	if len(users) == 0 {
		return authz.Caller{}, nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	caller := authz.Caller{ID: rd.UserID, Role: rd.Role, Authenticated: true}
	return caller, users[0], nil
}

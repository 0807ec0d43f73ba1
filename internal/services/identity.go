package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/types"
)

// IdentityEvent is a decoded identity-provider lifecycle event
// (user.created / user.updated / user.deleted).
type IdentityEvent struct {
	Type       string
	ExternalID string
	Email      string
	Name       string
}

// IdentityService maps identity-provider session tokens to local user rows,
// creating the row on first sight, and applies identity lifecycle webhooks.
type IdentityService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	ResolveUser(ctx context.Context, externalID, email, name string) (*types.User, error)
	ApplyIdentityEvent(ctx context.Context, evt IdentityEvent) error
	GetMe(ctx context.Context) (*types.User, error)
}

type identityService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
}

func NewIdentityService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string) IdentityService {
	serviceLog := baseLog.With("service", "IdentityService")
	return &identityService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
	}
}

func (s *identityService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	externalID, _ := claims["sub"].(string)
	if externalID == "" {
		return ctx, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	user, err := s.ResolveUser(ctx, externalID, email, name)
	if err != nil {
		return ctx, err
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      user.ID,
		Role:        user.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (s *identityService) ResolveUser(ctx context.Context, externalID, email, name string) (*types.User, error) {
	user, err := s.userRepo.GetByExternalID(ctx, nil, externalID)
	if err != nil {
		return nil, fmt.Errorf("load user by external id: %w", err)
	}
	if user == nil {
		user = &types.User{
			ID:         uuid.New(),
			ExternalID: externalID,
			Email:      email,
			Name:       name,
			Role:       types.RoleUser,
		}
		if err := s.userRepo.UpsertByExternalID(ctx, nil, user); err != nil {
			return nil, fmt.Errorf("create user on first sight: %w", err)
		}
		s.log.Info("Created user on first sight", "external_id", externalID, "user_id", user.ID)
	}
	if user.IsBanned {
		return nil, fmt.Errorf("%w: account is banned", ErrForbidden)
	}
	return user, nil
}

func (s *identityService) ApplyIdentityEvent(ctx context.Context, evt IdentityEvent) error {
	switch evt.Type {
	case "user.created", "user.updated":
		if evt.ExternalID == "" {
			return fmt.Errorf("%w: identity event missing external id", ErrBadRequest)
		}
		user := &types.User{
			ID:         uuid.New(),
			ExternalID: evt.ExternalID,
			Email:      evt.Email,
			Name:       evt.Name,
			Role:       types.RoleUser,
		}
		if err := s.userRepo.UpsertByExternalID(ctx, nil, user); err != nil {
			return fmt.Errorf("upsert user from identity event: %w", err)
		}
	case "user.deleted":
		if evt.ExternalID == "" {
			return fmt.Errorf("%w: identity event missing external id", ErrBadRequest)
		}
		if err := s.userRepo.SoftDeleteByExternalID(ctx, nil, evt.ExternalID); err != nil {
			return fmt.Errorf("delete user from identity event: %w", err)
		}
	default:
		s.log.Info("Ignoring unrecognized identity event", "type", evt.Type)
	}
	return nil
}

func (s *identityService) GetMe(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return users[0], nil
}

package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/utils"
)

var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var mediaContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"video/mp4":  true,
	"video/webm": true,
}

type UploadResult struct {
	BucketKey string `json:"bucket_key"`
	PublicURL string `json:"public_url"`
}

type UploadService interface {
	// UploadAvatar stores the image and repoints the user's avatar fields,
	// deleting the previous object best-effort.
	UploadAvatar(ctx context.Context, userID uuid.UUID, contentType string, size int64, file io.Reader) (*UploadResult, error)
	// UploadMedia stores course media (lesson video, cover image) under the
	// owner's prefix; the caller attaches the returned key to a lesson.
	UploadMedia(ctx context.Context, ownerID uuid.UUID, filename, contentType string, size int64, file io.Reader) (*UploadResult, error)
}

type uploadService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	bucket       BucketService
	maxSizeBytes int64
}

func NewUploadService(baseLog *logger.Logger, userRepo repos.UserRepo, bucket BucketService) UploadService {
	serviceLog := baseLog.With("service", "UploadService")
	maxSize := utils.GetEnvAsInt64("UPLOAD_MAX_SIZE_BYTES", 512<<20, serviceLog)
	return &uploadService{
		log:          serviceLog,
		userRepo:     userRepo,
		bucket:       bucket,
		maxSizeBytes: maxSize,
	}
}

func (s *uploadService) UploadAvatar(ctx context.Context, userID uuid.UUID, contentType string, size int64, file io.Reader) (*UploadResult, error) {
	if !avatarContentTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported avatar content type %q", ErrBadRequest, contentType)
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	if s.bucket == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrBadRequest)
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	user := users[0]

	key := fmt.Sprintf("avatars/%s/%s", userID, uuid.New())
	if err := s.bucket.UploadFile(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	url := s.bucket.GetPublicURL(key)

	if err := s.userRepo.UpdateAvatarFields(ctx, nil, userID, key, url); err != nil {
		return nil, fmt.Errorf("persist avatar fields: %w", err)
	}

	if user.AvatarBucketKey != "" && user.AvatarBucketKey != key {
		if err := s.bucket.DeleteFile(ctx, user.AvatarBucketKey); err != nil {
			s.log.Warn("Could not delete previous avatar object", "key", user.AvatarBucketKey, "error", err)
		}
	}

	return &UploadResult{BucketKey: key, PublicURL: url}, nil
}

func (s *uploadService) UploadMedia(ctx context.Context, ownerID uuid.UUID, filename, contentType string, size int64, file io.Reader) (*UploadResult, error) {
	if !mediaContentTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported media content type %q", ErrBadRequest, contentType)
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	if s.bucket == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrBadRequest)
	}

	key := fmt.Sprintf("media/%s/%s-%s", ownerID, uuid.New(), utils.Slugify(filename))
	if err := s.bucket.UploadFile(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	return &UploadResult{BucketKey: key, PublicURL: s.bucket.GetPublicURL(key)}, nil
}

func (s *uploadService) checkSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: empty upload", ErrBadRequest)
	}
	if size > s.maxSizeBytes {
		return fmt.Errorf("%w: upload exceeds the %d byte limit", ErrBadRequest, s.maxSizeBytes)
	}
	return nil
}

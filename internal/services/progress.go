package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/types"
)

// videoCompletionPercent is the watched share at which a lesson's video counts
// as completed and the cascade into LessonProgress fires.
const videoCompletionPercent = 90.0

type CourseProgress struct {
	CompletedCount int     `json:"completed_count"`
	TotalCount     int     `json:"total_count"`
	Percentage     float64 `json:"percentage"`
}

type ProgressService interface {
	RecordVideoProgress(ctx context.Context, userID, lessonID uuid.UUID, currentTime, duration float64) (*types.VideoProgress, error)
	// ToggleLessonCompletion requires an active enrollment in the owning
	// course; callers without one see not-found.
	ToggleLessonCompletion(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error)
}

type progressService struct {
	db                 *gorm.DB
	log                *logger.Logger
	chapterRepo        repos.ChapterRepo
	lessonRepo         repos.LessonRepo
	enrollmentRepo     repos.EnrollmentRepo
	videoProgressRepo  repos.VideoProgressRepo
	lessonProgressRepo repos.LessonProgressRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	videoProgressRepo repos.VideoProgressRepo,
	lessonProgressRepo repos.LessonProgressRepo,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:                 db,
		log:                serviceLog,
		chapterRepo:        chapterRepo,
		lessonRepo:         lessonRepo,
		enrollmentRepo:     enrollmentRepo,
		videoProgressRepo:  videoProgressRepo,
		lessonProgressRepo: lessonProgressRepo,
	}
}

func (s *progressService) RecordVideoProgress(ctx context.Context, userID, lessonID uuid.UUID, currentTime, duration float64) (*types.VideoProgress, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: lesson", ErrNotFound)
	}

	var percent float64
	if duration > 0 {
		percent = currentTime / duration * 100
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	previous, err := s.videoProgressRepo.GetByUserAndLesson(ctx, nil, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load video progress: %w", err)
	}

	row := &types.VideoProgress{
		ID:             uuid.New(),
		UserID:         userID,
		LessonID:       lessonID,
		WatchedSeconds: currentTime,
		Percent:        percent,
		IsCompleted:    percent >= videoCompletionPercent,
	}
	if previous != nil {
		row.ID = previous.ID
	}
	if err := s.videoProgressRepo.Upsert(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("upsert video progress: %w", err)
	}

	wasCompleted := previous != nil && previous.IsCompleted
	if row.IsCompleted && !wasCompleted {
		if err := s.cascadeLessonCompletion(ctx, userID, lesson); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *progressService) cascadeLessonCompletion(ctx context.Context, userID uuid.UUID, lesson *types.Lesson) error {
	chapter, err := s.chapterRepo.GetByID(ctx, nil, lesson.ChapterID)
	if err != nil {
		return fmt.Errorf("resolve owning chapter: %w", err)
	}
	if chapter == nil {
		return fmt.Errorf("%w: chapter", ErrNotFound)
	}

	now := time.Now()
	row := &types.LessonProgress{
		ID:          uuid.New(),
		UserID:      userID,
		LessonID:    lesson.ID,
		CourseID:    chapter.CourseID,
		Completed:   true,
		CompletedAt: &now,
	}
	if err := s.lessonProgressRepo.Upsert(ctx, nil, row); err != nil {
		return fmt.Errorf("cascade lesson completion: %w", err)
	}
	return nil
}

func (s *progressService) ToggleLessonCompletion(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: lesson", ErrNotFound)
	}
	chapter, err := s.chapterRepo.GetByID(ctx, nil, lesson.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("resolve owning chapter: %w", err)
	}
	if chapter == nil {
		return nil, fmt.Errorf("%w: chapter", ErrNotFound)
	}

	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, chapter.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status != types.EnrollmentActive {
		return nil, fmt.Errorf("%w: no active enrollment for this course", ErrNotFound)
	}

	existing, err := s.lessonProgressRepo.GetByUserAndLesson(ctx, nil, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson progress: %w", err)
	}

	row := &types.LessonProgress{
		ID:       uuid.New(),
		UserID:   userID,
		LessonID: lessonID,
		CourseID: chapter.CourseID,
	}
	if existing != nil {
		row.ID = existing.ID
		row.Completed = !existing.Completed
	} else {
		row.Completed = true
	}
	if row.Completed {
		now := time.Now()
		row.CompletedAt = &now
	} else {
		row.CompletedAt = nil
	}

	if err := s.lessonProgressRepo.Upsert(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("toggle lesson completion: %w", err)
	}
	return row, nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error) {
	chapters, err := s.chapterRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}

	chapterIDs := make([]uuid.UUID, 0, len(chapters))
	for _, ch := range chapters {
		chapterIDs = append(chapterIDs, ch.ID)
	}
	lessons, err := s.lessonRepo.GetByChapterIDs(ctx, nil, chapterIDs)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	if len(lessons) == 0 {
		return &CourseProgress{}, nil
	}

	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	progress, err := s.lessonProgressRepo.GetByUserAndLessonIDs(ctx, nil, userID, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("load lesson progress: %w", err)
	}

	completed := 0
	for _, p := range progress {
		if p.Completed {
			completed++
		}
	}

	return &CourseProgress{
		CompletedCount: completed,
		TotalCount:     len(lessons),
		Percentage:     float64(completed) / float64(len(lessons)) * 100,
	}, nil
}

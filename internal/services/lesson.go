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

type CreateLessonInput struct {
	Title           string
	IsFree          bool
	VideoURL        string
	VideoBucketKey  string
	DurationSeconds float64
}

type UpdateLessonInput struct {
	Title           *string
	IsFree          *bool
	VideoURL        *string
	VideoBucketKey  *string
	DurationSeconds *float64
}

type LessonService interface {
	Create(ctx context.Context, chapterID uuid.UUID, input CreateLessonInput) (*types.Lesson, error)
	Update(ctx context.Context, lessonID uuid.UUID, input UpdateLessonInput) error
	Delete(ctx context.Context, lessonID uuid.UUID) error
	// GetForViewer returns the lesson when the caller may watch it: free
	// lessons are open, paid ones require an active enrollment or ownership.
	GetForViewer(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error)
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*types.Lesson, error)
}

type lessonService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	chapterRepo    repos.ChapterRepo
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
) LessonService {
	serviceLog := baseLog.With("service", "LessonService")
	return &lessonService{
		db:             db,
		log:            serviceLog,
		courseRepo:     courseRepo,
		chapterRepo:    chapterRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *lessonService) Create(ctx context.Context, chapterID uuid.UUID, input CreateLessonInput) (*types.Lesson, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: a title is required", ErrBadRequest)
	}
	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeCourseMutation(ctx, chapter.CourseID); err != nil {
		return nil, err
	}

	maxPos, err := s.lessonRepo.MaxPosition(ctx, nil, chapterID)
	if err != nil {
		return nil, fmt.Errorf("resolve max position: %w", err)
	}

	lesson := &types.Lesson{
		ID:              uuid.New(),
		ChapterID:       chapterID,
		Title:           input.Title,
		Position:        maxPos + 1,
		IsFree:          input.IsFree,
		VideoURL:        input.VideoURL,
		VideoBucketKey:  input.VideoBucketKey,
		DurationSeconds: input.DurationSeconds,
	}
	if _, err := s.lessonRepo.Create(ctx, nil, []*types.Lesson{lesson}); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return lesson, nil
}

func (s *lessonService) Update(ctx context.Context, lessonID uuid.UUID, input UpdateLessonInput) error {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	chapter, err := s.loadChapter(ctx, lesson.ChapterID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeCourseMutation(ctx, chapter.CourseID); err != nil {
		return err
	}

	fields := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return fmt.Errorf("%w: a title is required", ErrBadRequest)
		}
		fields["title"] = *input.Title
	}
	if input.IsFree != nil {
		fields["is_free"] = *input.IsFree
	}
	if input.VideoURL != nil {
		fields["video_url"] = *input.VideoURL
	}
	if input.VideoBucketKey != nil {
		fields["video_bucket_key"] = *input.VideoBucketKey
	}
	if input.DurationSeconds != nil {
		if *input.DurationSeconds < 0 {
			return fmt.Errorf("%w: duration cannot be negative", ErrBadRequest)
		}
		fields["duration_seconds"] = *input.DurationSeconds
	}

	if err := s.lessonRepo.UpdateFields(ctx, nil, lessonID, fields); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

func (s *lessonService) Delete(ctx context.Context, lessonID uuid.UUID) error {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	chapter, err := s.loadChapter(ctx, lesson.ChapterID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeCourseMutation(ctx, chapter.CourseID); err != nil {
		return err
	}
	if err := s.lessonRepo.DeleteAndRenumber(ctx, nil, lessonID); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	s.log.Info("Lesson deleted", "lesson_id", lessonID, "chapter_id", lesson.ChapterID)
	return nil
}

func (s *lessonService) GetForViewer(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.IsFree {
		return lesson, nil
	}

	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}

	chapter, err := s.loadChapter(ctx, lesson.ChapterID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{chapter.CourseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}
	course := courses[0]

	if course.UserID == rd.UserID || rd.Role == types.RoleAdmin {
		return lesson, nil
	}

	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, rd.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status != types.EnrollmentActive {
		return nil, fmt.Errorf("%w: lesson requires an active enrollment", ErrForbidden)
	}
	return lesson, nil
}

func (s *lessonService) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*types.Lesson, error) {
	lessons, err := s.lessonRepo.GetByChapterIDs(ctx, nil, []uuid.UUID{chapterID})
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

func (s *lessonService) loadLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: lesson", ErrNotFound)
	}
	return lesson, nil
}

func (s *lessonService) loadChapter(ctx context.Context, chapterID uuid.UUID) (*types.Chapter, error) {
	chapter, err := s.chapterRepo.GetByID(ctx, nil, chapterID)
	if err != nil {
		return nil, fmt.Errorf("load chapter: %w", err)
	}
	if chapter == nil {
		return nil, fmt.Errorf("%w: chapter", ErrNotFound)
	}
	return chapter, nil
}

func (s *lessonService) authorizeCourseMutation(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}
	decision := authz.Decide(
		authz.Caller{ID: rd.UserID, Role: rd.Role, Authenticated: true},
		authz.Resource{Kind: "course", OwnerID: courses[0].UserID},
		authz.ActionUpdate,
	)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return courses[0], nil
}

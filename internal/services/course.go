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
	"github.com/studiora/studiora-backend/internal/utils"
)

type CreateCourseInput struct {
	Title       string
	Description string
	Price       float64
	PriceRef    string
	Category    string
	Level       types.CourseLevel
}

type UpdateCourseInput struct {
	Title       *string
	Description *string
	Price       *float64
	PriceRef    *string
	Category    *string
	Level       *types.CourseLevel
}

type CourseService interface {
	Create(ctx context.Context, input CreateCourseInput) (*types.Course, error)
	Update(ctx context.Context, courseID uuid.UUID, input UpdateCourseInput) (*types.Course, error)
	Publish(ctx context.Context, courseID uuid.UUID) error
	Archive(ctx context.Context, courseID uuid.UUID) error
	// Delete hard-deletes the course tree top-down. It is refused while
	// active enrollments reference the course; callers must archive instead.
	Delete(ctx context.Context, courseID uuid.UUID) error
	GetBySlug(ctx context.Context, slug string) (*types.Course, error)
	ListPublished(ctx context.Context, category string) ([]*types.Course, error)
	ListOwn(ctx context.Context) ([]*types.Course, error)
	GetByID(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
}

type courseService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	chapterRepo    repos.ChapterRepo
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
) CourseService {
	serviceLog := baseLog.With("service", "CourseService")
	return &courseService{
		db:             db,
		log:            serviceLog,
		courseRepo:     courseRepo,
		chapterRepo:    chapterRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *courseService) Create(ctx context.Context, input CreateCourseInput) (*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: a title is required", ErrBadRequest)
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrBadRequest)
	}

	slug, err := utils.UniqueSlug(utils.Slugify(input.Title), func(candidate string) (bool, error) {
		return s.courseRepo.SlugExists(ctx, nil, candidate)
	})
	if err != nil {
		return nil, fmt.Errorf("derive slug: %w", err)
	}

	level := input.Level
	if level == "" {
		level = types.LevelBeginner
	}

	course := &types.Course{
		ID:          uuid.New(),
		UserID:      rd.UserID,
		Title:       input.Title,
		Slug:        slug,
		Description: input.Description,
		Price:       input.Price,
		PriceRef:    input.PriceRef,
		Category:    input.Category,
		Level:       level,
		Status:      types.CourseDraft,
	}
	if _, err := s.courseRepo.Create(ctx, nil, []*types.Course{course}); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.log.Info("Course created", "course_id", course.ID, "slug", slug)
	return course, nil
}

func (s *courseService) Update(ctx context.Context, courseID uuid.UUID, input UpdateCourseInput) (*types.Course, error) {
	course, err := s.authorizeMutation(ctx, courseID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, fmt.Errorf("%w: a title is required", ErrBadRequest)
		}
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrBadRequest)
		}
		fields["price"] = *input.Price
	}
	if input.PriceRef != nil {
		fields["price_ref"] = *input.PriceRef
	}
	if input.Category != nil {
		fields["category"] = *input.Category
	}
	if input.Level != nil {
		fields["level"] = *input.Level
	}

	if err := s.courseRepo.UpdateFields(ctx, nil, courseID, fields); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}

	updated, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil || len(updated) == 0 {
		return course, nil
	}
	return updated[0], nil
}

func (s *courseService) Publish(ctx context.Context, courseID uuid.UUID) error {
	if _, err := s.authorizeMutation(ctx, courseID, authz.ActionPublish); err != nil {
		return err
	}
	if err := s.courseRepo.UpdateStatus(ctx, nil, courseID, types.CoursePublished); err != nil {
		return fmt.Errorf("publish course: %w", err)
	}
	return nil
}

func (s *courseService) Archive(ctx context.Context, courseID uuid.UUID) error {
	if _, err := s.authorizeMutation(ctx, courseID, authz.ActionArchive); err != nil {
		return err
	}
	if err := s.courseRepo.UpdateStatus(ctx, nil, courseID, types.CourseArchived); err != nil {
		return fmt.Errorf("archive course: %w", err)
	}
	return nil
}

func (s *courseService) Delete(ctx context.Context, courseID uuid.UUID) error {
	if _, err := s.authorizeMutation(ctx, courseID, authz.ActionDelete); err != nil {
		return err
	}

	active, err := s.enrollmentRepo.CountActiveByCourseID(ctx, nil, courseID)
	if err != nil {
		return fmt.Errorf("count active enrollments: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: course has active enrollments, archive it instead", ErrBadRequest)
	}

	chapters, err := s.chapterRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return fmt.Errorf("load chapters: %w", err)
	}
	chapterIDs := make([]uuid.UUID, 0, len(chapters))
	for _, ch := range chapters {
		chapterIDs = append(chapterIDs, ch.ID)
	}

	if err := s.lessonRepo.FullDeleteByChapterIDs(ctx, nil, chapterIDs); err != nil {
		return fmt.Errorf("delete lessons: %w", err)
	}
	if err := s.chapterRepo.FullDeleteByCourseIDs(ctx, nil, []uuid.UUID{courseID}); err != nil {
		return fmt.Errorf("delete chapters: %w", err)
	}
	if err := s.courseRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{courseID}); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.log.Info("Course deleted", "course_id", courseID)
	return nil
}

func (s *courseService) GetBySlug(ctx context.Context, slug string) (*types.Course, error) {
	course, err := s.courseRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}

	rd := requestdata.GetRequestData(ctx)
	caller := authz.Caller{}
	if rd != nil && rd.UserID != uuid.Nil {
		caller = authz.Caller{ID: rd.UserID, Role: rd.Role, Authenticated: true}
	}
	decision := authz.Decide(caller, authz.Resource{
		Kind:      "course",
		OwnerID:   course.UserID,
		Published: course.Status == types.CoursePublished,
	}, authz.ActionRead)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}
	return course, nil
}

func (s *courseService) ListPublished(ctx context.Context, category string) ([]*types.Course, error) {
	courses, err := s.courseRepo.ListPublished(ctx, nil, category)
	if err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) ListOwn(ctx context.Context) ([]*types.Course, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}
	courses, err := s.courseRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("list own courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) GetByID(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}
	return courses[0], nil
}

// authorizeMutation loads the course and runs the caller through the policy
// for the given action.
func (s *courseService) authorizeMutation(ctx context.Context, courseID uuid.UUID, action authz.Action) (*types.Course, error) {
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
	course := courses[0]

	decision := authz.Decide(
		authz.Caller{ID: rd.UserID, Role: rd.Role, Authenticated: true},
		authz.Resource{Kind: "course", OwnerID: course.UserID},
		action,
	)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return course, nil
}

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

type ChapterService interface {
	Create(ctx context.Context, courseID uuid.UUID, title string) (*types.Chapter, error)
	Rename(ctx context.Context, chapterID uuid.UUID, title string) error
	// Delete removes the chapter with its lessons and closes the position gap
	// so the course's chapters stay numbered 1..n.
	Delete(ctx context.Context, chapterID uuid.UUID) error
	Reorder(ctx context.Context, courseID uuid.UUID, orderedIDs []uuid.UUID) error
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Chapter, error)
}

type chapterService struct {
	db          *gorm.DB
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	chapterRepo repos.ChapterRepo
	lessonRepo  repos.LessonRepo
}

func NewChapterService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
) ChapterService {
	serviceLog := baseLog.With("service", "ChapterService")
	return &chapterService{
		db:          db,
		log:         serviceLog,
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		lessonRepo:  lessonRepo,
	}
}

func (s *chapterService) Create(ctx context.Context, courseID uuid.UUID, title string) (*types.Chapter, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: a title is required", ErrBadRequest)
	}
	if err := s.authorizeCourseMutation(ctx, courseID); err != nil {
		return nil, err
	}

	maxPos, err := s.chapterRepo.MaxPosition(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("resolve max position: %w", err)
	}

	chapter := &types.Chapter{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    title,
		Position: maxPos + 1,
	}
	if _, err := s.chapterRepo.Create(ctx, nil, []*types.Chapter{chapter}); err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	return chapter, nil
}

func (s *chapterService) Rename(ctx context.Context, chapterID uuid.UUID, title string) error {
	if title == "" {
		return fmt.Errorf("%w: a title is required", ErrBadRequest)
	}
	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return err
	}
	if err := s.authorizeCourseMutation(ctx, chapter.CourseID); err != nil {
		return err
	}
	if err := s.chapterRepo.UpdateTitle(ctx, nil, chapterID, title); err != nil {
		return fmt.Errorf("rename chapter: %w", err)
	}
	return nil
}

func (s *chapterService) Delete(ctx context.Context, chapterID uuid.UUID) error {
	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return err
	}
	if err := s.authorizeCourseMutation(ctx, chapter.CourseID); err != nil {
		return err
	}
	if err := s.lessonRepo.FullDeleteByChapterIDs(ctx, nil, []uuid.UUID{chapterID}); err != nil {
		return fmt.Errorf("delete chapter lessons: %w", err)
	}
	if err := s.chapterRepo.DeleteAndRenumber(ctx, nil, chapterID); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	s.log.Info("Chapter deleted", "chapter_id", chapterID, "course_id", chapter.CourseID)
	return nil
}

func (s *chapterService) Reorder(ctx context.Context, courseID uuid.UUID, orderedIDs []uuid.UUID) error {
	if err := s.authorizeCourseMutation(ctx, courseID); err != nil {
		return err
	}

	chapters, err := s.chapterRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return fmt.Errorf("load chapters: %w", err)
	}
	if len(orderedIDs) != len(chapters) {
		return fmt.Errorf("%w: reorder must list every chapter of the course exactly once", ErrBadRequest)
	}
	known := make(map[uuid.UUID]bool, len(chapters))
	for _, ch := range chapters {
		known[ch.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] || seen[id] {
			return fmt.Errorf("%w: reorder must list every chapter of the course exactly once", ErrBadRequest)
		}
		seen[id] = true
	}

	if err := s.chapterRepo.Reorder(ctx, nil, courseID, orderedIDs); err != nil {
		return fmt.Errorf("reorder chapters: %w", err)
	}
	return nil
}

func (s *chapterService) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Chapter, error) {
	chapters, err := s.chapterRepo.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

func (s *chapterService) loadChapter(ctx context.Context, chapterID uuid.UUID) (*types.Chapter, error) {
	chapter, err := s.chapterRepo.GetByID(ctx, nil, chapterID)
	if err != nil {
		return nil, fmt.Errorf("load chapter: %w", err)
	}
	if chapter == nil {
		return nil, fmt.Errorf("%w: chapter", ErrNotFound)
	}
	return chapter, nil
}

// Chapter mutations are authorized against the owning course.
func (s *chapterService) authorizeCourseMutation(ctx context.Context, courseID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("%w: no request identity", ErrUnauthorized)
	}
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 {
		return fmt.Errorf("%w: course", ErrNotFound)
	}
	decision := authz.Decide(
		authz.Caller{ID: rd.UserID, Role: rd.Role, Authenticated: true},
		authz.Resource{Kind: "course", OwnerID: courses[0].UserID},
		authz.ActionUpdate,
	)
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return nil
}

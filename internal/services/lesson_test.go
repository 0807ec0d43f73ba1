package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type lessonFixture struct {
	svc            LessonService
	courseRepo     *fakeCourseRepo
	chapterRepo    *fakeChapterRepo
	lessonRepo     *fakeLessonRepo
	enrollmentRepo *fakeEnrollmentRepo
}

func newLessonFixture() *lessonFixture {
	f := &lessonFixture{
		courseRepo:     newFakeCourseRepo(),
		chapterRepo:    newFakeChapterRepo(),
		lessonRepo:     newFakeLessonRepo(),
		enrollmentRepo: newFakeEnrollmentRepo(),
	}
	f.svc = NewLessonService(nil, logger.NewNop(), f.courseRepo, f.chapterRepo, f.lessonRepo, f.enrollmentRepo)
	return f
}

func (f *lessonFixture) seedCourse(ownerID uuid.UUID) (*types.Course, *types.Chapter) {
	course := f.courseRepo.add(&types.Course{UserID: ownerID, Status: types.CoursePublished})
	chapter := f.chapterRepo.add(&types.Chapter{CourseID: course.ID, Position: 1})
	return course, chapter
}

func TestCreateLessonAppendsAtEnd(t *testing.T) {
	f := newLessonFixture()
	ownerID := uuid.New()
	_, chapter := f.seedCourse(ownerID)
	ctx := authedCtx(ownerID, types.RoleInstructor)

	for i := 1; i <= 3; i++ {
		lesson, err := f.svc.Create(ctx, chapter.ID, CreateLessonInput{Title: "Lesson"})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if lesson.Position != i {
			t.Fatalf("expected position %d, got %d", i, lesson.Position)
		}
	}
}

func TestDeleteLessonKeepsPositionsDense(t *testing.T) {
	f := newLessonFixture()
	ownerID := uuid.New()
	_, chapter := f.seedCourse(ownerID)
	ctx := authedCtx(ownerID, types.RoleInstructor)

	var lessons []*types.Lesson
	for i := 0; i < 4; i++ {
		l, err := f.svc.Create(ctx, chapter.ID, CreateLessonInput{Title: "L"})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		lessons = append(lessons, l)
	}

	if err := f.svc.Delete(ctx, lessons[0].ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	remaining, _ := f.lessonRepo.GetByChapterIDs(context.Background(), nil, []uuid.UUID{chapter.ID})
	if len(remaining) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(remaining))
	}
	for i, l := range remaining {
		if l.Position != i+1 {
			t.Fatalf("positions must stay dense, index %d has position %d", i, l.Position)
		}
	}
}

func TestGetForViewerGating(t *testing.T) {
	f := newLessonFixture()
	ownerID := uuid.New()
	course, chapter := f.seedCourse(ownerID)
	free := f.lessonRepo.add(&types.Lesson{ChapterID: chapter.ID, Position: 1, IsFree: true})
	paid := f.lessonRepo.add(&types.Lesson{ChapterID: chapter.ID, Position: 2})

	// Free lessons are open, even anonymously.
	if _, err := f.svc.GetForViewer(context.Background(), free.ID); err != nil {
		t.Fatalf("free lesson should be open: %v", err)
	}

	// Paid lessons need identity, then an active enrollment.
	if _, err := f.svc.GetForViewer(context.Background(), paid.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous paid access: expected ErrUnauthorized, got %v", err)
	}

	studentID := uuid.New()
	studentCtx := authedCtx(studentID, types.RoleStudent)
	if _, err := f.svc.GetForViewer(studentCtx, paid.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unenrolled paid access: expected ErrForbidden, got %v", err)
	}

	f.enrollmentRepo.add(&types.Enrollment{UserID: studentID, CourseID: course.ID, Status: types.EnrollmentActive})
	if _, err := f.svc.GetForViewer(studentCtx, paid.ID); err != nil {
		t.Fatalf("enrolled student should see the lesson: %v", err)
	}

	// The owner always sees their own content.
	if _, err := f.svc.GetForViewer(authedCtx(ownerID, types.RoleInstructor), paid.ID); err != nil {
		t.Fatalf("owner should see their lesson: %v", err)
	}
}

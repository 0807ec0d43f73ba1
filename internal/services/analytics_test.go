package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

type analyticsFixture struct {
	svc                AnalyticsService
	courseRepo         *fakeCourseRepo
	enrollmentRepo     *fakeEnrollmentRepo
	chapterRepo        *fakeChapterRepo
	lessonRepo         *fakeLessonRepo
	lessonProgressRepo *fakeLessonProgressRepo
}

func newAnalyticsFixture() *analyticsFixture {
	f := &analyticsFixture{
		courseRepo:         newFakeCourseRepo(),
		enrollmentRepo:     newFakeEnrollmentRepo(),
		chapterRepo:        newFakeChapterRepo(),
		lessonRepo:         newFakeLessonRepo(),
		lessonProgressRepo: newFakeLessonProgressRepo(),
	}
	// nil cache: the service must compute directly without Redis.
	f.svc = NewAnalyticsService(nil, logger.NewNop(), f.courseRepo, f.enrollmentRepo, f.chapterRepo, f.lessonRepo, f.lessonProgressRepo, nil)
	return f
}

func activeEnrollment(userID, courseID uuid.UUID, amount float64, activatedAt time.Time) *types.Enrollment {
	return &types.Enrollment{
		UserID:      userID,
		CourseID:    courseID,
		Status:      types.EnrollmentActive,
		Amount:      amount,
		ActivatedAt: &activatedAt,
	}
}

func TestDayStartTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 8, 30, 2, 15, 0, 0, loc) // 2026-08-29 21:15 UTC
	got := dayStart(local)
	want := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInstructorOverviewWindows(t *testing.T) {
	f := newAnalyticsFixture()
	instructorID := uuid.New()
	course := f.courseRepo.add(&types.Course{UserID: instructorID, Title: "Live", Status: types.CoursePublished})

	today := dayStart(time.Now())
	// One activation inside the current 7-day window, one just before it,
	// and one too old for either window.
	f.enrollmentRepo.add(activeEnrollment(uuid.New(), course.ID, 100, today.AddDate(0, 0, -1)))
	f.enrollmentRepo.add(activeEnrollment(uuid.New(), course.ID, 40, today.AddDate(0, 0, -8)))
	f.enrollmentRepo.add(activeEnrollment(uuid.New(), course.ID, 25, today.AddDate(0, 0, -30)))
	// Pending rows never count toward revenue.
	f.enrollmentRepo.add(&types.Enrollment{UserID: uuid.New(), CourseID: course.ID, Status: types.EnrollmentPending, Amount: 999})

	overview, err := f.svc.GetInstructorOverview(context.Background(), instructorID, 7)
	if err != nil {
		t.Fatalf("GetInstructorOverview returned error: %v", err)
	}
	if overview.TotalRevenue != 100 {
		t.Fatalf("expected current revenue 100, got %v", overview.TotalRevenue)
	}
	if overview.RevenueDelta != 60 {
		t.Fatalf("expected delta 100-40=60, got %v", overview.RevenueDelta)
	}
	if overview.TotalEnrollments != 1 || overview.EnrollmentsDelta != 0 {
		t.Fatalf("expected 1 current vs 1 previous enrollment, got %+v", overview)
	}
	if overview.ActiveStudents != 3 {
		t.Fatalf("active students count all active rows, got %d", overview.ActiveStudents)
	}
	if overview.PublishedCourseCount != 1 {
		t.Fatalf("expected 1 published course, got %d", overview.PublishedCourseCount)
	}
}

func TestInstructorOverviewCompletionRate(t *testing.T) {
	f := newAnalyticsFixture()
	instructorID := uuid.New()
	course := f.courseRepo.add(&types.Course{UserID: instructorID, Status: types.CoursePublished})
	chapter := f.chapterRepo.add(&types.Chapter{CourseID: course.ID, Position: 1})
	l1 := f.lessonRepo.add(&types.Lesson{ChapterID: chapter.ID, Position: 1})
	f.lessonRepo.add(&types.Lesson{ChapterID: chapter.ID, Position: 2})

	now := time.Now()
	studentA := uuid.New()
	studentB := uuid.New()
	f.enrollmentRepo.add(activeEnrollment(studentA, course.ID, 10, now))
	f.enrollmentRepo.add(activeEnrollment(studentB, course.ID, 10, now))

	// Student A finished one of two lessons; student B none: 1 of 4 pairs.
	f.lessonProgressRepo.Upsert(context.Background(), nil, &types.LessonProgress{
		UserID: studentA, LessonID: l1.ID, CourseID: course.ID, Completed: true,
	})

	overview, err := f.svc.GetInstructorOverview(context.Background(), instructorID, 30)
	if err != nil {
		t.Fatalf("GetInstructorOverview returned error: %v", err)
	}
	if overview.CompletionRate != 25 {
		t.Fatalf("expected completion rate 25, got %v", overview.CompletionRate)
	}
}

func TestInstructorOverviewNoCourses(t *testing.T) {
	f := newAnalyticsFixture()
	overview, err := f.svc.GetInstructorOverview(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("GetInstructorOverview returned error: %v", err)
	}
	if overview.TotalRevenue != 0 || overview.CompletionRate != 0 || overview.ActiveStudents != 0 {
		t.Fatalf("empty catalog should report zeros, got %+v", overview)
	}
}

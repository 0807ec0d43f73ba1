package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/types"
)

func newReconcileFixture() (ReconcileService, *fakeCourseRepo, *fakeEnrollmentRepo, *fakeConversationRepo, *fakeMessageRepo) {
	log := logger.NewNop()
	courseRepo := newFakeCourseRepo()
	enrollmentRepo := newFakeEnrollmentRepo()
	conversationRepo := newFakeConversationRepo()
	messageRepo := newFakeMessageRepo()
	svc := NewReconcileService(nil, log, courseRepo, enrollmentRepo, conversationRepo, messageRepo, &InlineSideChannel{Log: log}, nil)
	return svc, courseRepo, enrollmentRepo, conversationRepo, messageRepo
}

func TestHandleCheckoutCompletedActivatesPendingEnrollment(t *testing.T) {
	svc, courseRepo, enrollmentRepo, _, messageRepo := newReconcileFixture()

	instructorID := uuid.New()
	studentID := uuid.New()
	course := courseRepo.add(&types.Course{UserID: instructorID, Title: "Intro to Drawing"})
	enrollmentRepo.add(&types.Enrollment{
		UserID:   studentID,
		CourseID: course.ID,
		Status:   types.EnrollmentPending,
	})

	if err := svc.HandleCheckoutCompleted(context.Background(), studentID, course.ID, 4999); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	e, _ := enrollmentRepo.GetByUserAndCourse(context.Background(), nil, studentID, course.ID)
	if e == nil || e.Status != types.EnrollmentActive {
		t.Fatalf("expected active enrollment, got %+v", e)
	}
	if e.Amount != 49.99 {
		t.Fatalf("expected amount 49.99, got %v", e.Amount)
	}
	if e.ActivatedAt == nil {
		t.Fatalf("expected activated_at to be set")
	}

	if len(messageRepo.rows) != 1 {
		t.Fatalf("expected exactly one welcome message, got %d", len(messageRepo.rows))
	}
	welcome := messageRepo.rows[0]
	if welcome.SenderID != nil {
		t.Fatalf("welcome message should be system-authored, got sender %v", welcome.SenderID)
	}
	if welcome.Body == "" {
		t.Fatalf("welcome message body is empty")
	}
}

func TestHandleCheckoutCompletedCreatesEnrollmentWhenAbsent(t *testing.T) {
	svc, courseRepo, enrollmentRepo, _, _ := newReconcileFixture()

	studentID := uuid.New()
	course := courseRepo.add(&types.Course{UserID: uuid.New(), Title: "Watercolors"})

	if err := svc.HandleCheckoutCompleted(context.Background(), studentID, course.ID, 1000); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	e, _ := enrollmentRepo.GetByUserAndCourse(context.Background(), nil, studentID, course.ID)
	if e == nil || e.Status != types.EnrollmentActive {
		t.Fatalf("expected active enrollment created from scratch, got %+v", e)
	}
}

func TestHandleCheckoutCompletedReplayIsIdempotent(t *testing.T) {
	svc, courseRepo, enrollmentRepo, _, messageRepo := newReconcileFixture()

	studentID := uuid.New()
	course := courseRepo.add(&types.Course{UserID: uuid.New(), Title: "Oil Painting"})
	enrollmentRepo.add(&types.Enrollment{
		UserID:   studentID,
		CourseID: course.ID,
		Status:   types.EnrollmentPending,
	})

	for i := 0; i < 3; i++ {
		if err := svc.HandleCheckoutCompleted(context.Background(), studentID, course.ID, 2500); err != nil {
			t.Fatalf("replay %d returned error: %v", i, err)
		}
	}

	var enrollmentCount int
	for range enrollmentRepo.enrollments {
		enrollmentCount++
	}
	if enrollmentCount != 1 {
		t.Fatalf("expected one enrollment row after replays, got %d", enrollmentCount)
	}
	if len(messageRepo.rows) != 1 {
		t.Fatalf("expected one welcome message after replays, got %d", len(messageRepo.rows))
	}
}

func TestHandleCheckoutCompletedSkipsSeedWhenThreadHasMessages(t *testing.T) {
	svc, courseRepo, enrollmentRepo, conversationRepo, messageRepo := newReconcileFixture()

	instructorID := uuid.New()
	studentID := uuid.New()
	course := courseRepo.add(&types.Course{UserID: instructorID, Title: "Sculpting"})
	enrollmentRepo.add(&types.Enrollment{
		UserID:   studentID,
		CourseID: course.ID,
		Status:   types.EnrollmentPending,
	})

	conv := &types.Conversation{
		InstructorID: instructorID,
		StudentID:    studentID,
		CourseKey:    course.ID.String(),
	}
	if _, err := conversationRepo.CreateIfAbsent(context.Background(), nil, conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	senderID := studentID
	messageRepo.Create(context.Background(), nil, []*types.Message{{
		ConversationID: conv.ID,
		SenderID:       &senderID,
		Body:           "hi, quick question before I start",
	}})

	if err := svc.HandleCheckoutCompleted(context.Background(), studentID, course.ID, 2500); err != nil {
		t.Fatalf("HandleCheckoutCompleted returned error: %v", err)
	}

	if len(messageRepo.rows) != 1 {
		t.Fatalf("existing thread must not receive a welcome seed, got %d messages", len(messageRepo.rows))
	}
}

func TestHandleCheckoutExpiredCancelsOnlyPending(t *testing.T) {
	svc, courseRepo, enrollmentRepo, _, _ := newReconcileFixture()

	studentID := uuid.New()
	course := courseRepo.add(&types.Course{UserID: uuid.New(), Title: "Pottery"})
	pending := enrollmentRepo.add(&types.Enrollment{
		UserID:   studentID,
		CourseID: course.ID,
		Status:   types.EnrollmentPending,
	})

	if err := svc.HandleCheckoutExpired(context.Background(), studentID, course.ID); err != nil {
		t.Fatalf("HandleCheckoutExpired returned error: %v", err)
	}
	if pending.Status != types.EnrollmentCancelled {
		t.Fatalf("expected cancelled, got %s", pending.Status)
	}

	// Expiry after activation must not touch the enrollment.
	activeStudent := uuid.New()
	active := enrollmentRepo.add(&types.Enrollment{
		UserID:   activeStudent,
		CourseID: course.ID,
		Status:   types.EnrollmentActive,
	})
	if err := svc.HandleCheckoutExpired(context.Background(), activeStudent, course.ID); err != nil {
		t.Fatalf("HandleCheckoutExpired returned error: %v", err)
	}
	if active.Status != types.EnrollmentActive {
		t.Fatalf("active enrollment must survive a late expiry event, got %s", active.Status)
	}
}

func TestHandleCheckoutCompletedSurvivesSeedFailure(t *testing.T) {
	svc, _, enrollmentRepo, _, _ := newReconcileFixture()

	// Course never created: the welcome seed cannot resolve it and fails,
	// but the enrollment transition must still commit.
	studentID := uuid.New()
	courseID := uuid.New()

	if err := svc.HandleCheckoutCompleted(context.Background(), studentID, courseID, 1500); err != nil {
		t.Fatalf("seed failure must not surface: %v", err)
	}
	e, _ := enrollmentRepo.GetByUserAndCourse(context.Background(), nil, studentID, courseID)
	if e == nil || e.Status != types.EnrollmentActive {
		t.Fatalf("expected active enrollment despite seed failure, got %+v", e)
	}
}

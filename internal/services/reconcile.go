package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/sse"
	"github.com/studiora/studiora-backend/internal/types"
)

// ReconcileService aligns enrollment state with the payment provider's event
// stream. Delivery is at-least-once, so every handler is idempotent; the
// (user_id, course_id) unique index is the replay key.
type ReconcileService interface {
	HandleCheckoutCompleted(ctx context.Context, userID, courseID uuid.UUID, amountTotal int64) error
	HandleCheckoutExpired(ctx context.Context, userID, courseID uuid.UUID) error
}

type reconcileService struct {
	db               *gorm.DB
	log              *logger.Logger
	courseRepo       repos.CourseRepo
	enrollmentRepo   repos.EnrollmentRepo
	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	sideChannel      SideChannel
	hub              *sse.SSEHub
}

func NewReconcileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	sideChannel SideChannel,
	hub *sse.SSEHub,
) ReconcileService {
	serviceLog := baseLog.With("service", "ReconcileService")
	return &reconcileService{
		db:               db,
		log:              serviceLog,
		courseRepo:       courseRepo,
		enrollmentRepo:   enrollmentRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		sideChannel:      sideChannel,
		hub:              hub,
	}
}

func (s *reconcileService) HandleCheckoutCompleted(ctx context.Context, userID, courseID uuid.UUID, amountTotal int64) error {
	amount := float64(amountTotal) / 100

	existing, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}

	activated := false
	now := time.Now()

	switch {
	case existing == nil:
		outcome, err := s.enrollmentRepo.CreateIfAbsent(ctx, nil, &types.Enrollment{
			UserID:      userID,
			CourseID:    courseID,
			Status:      types.EnrollmentActive,
			Amount:      amount,
			ActivatedAt: &now,
		})
		if err != nil {
			return fmt.Errorf("create active enrollment: %w", err)
		}
		// AlreadyExists here means a replay or a concurrent initiate won the
		// insert; either way the unique key held and this call is a no-op.
		activated = outcome == repos.OutcomeCreated
	case existing.Status == types.EnrollmentActive:
		s.log.Info("Enrollment already active, ignoring replayed event", "user_id", userID, "course_id", courseID)
	default:
		affected, err := s.enrollmentRepo.Activate(ctx, nil, existing.ID, amount, now)
		if err != nil {
			return fmt.Errorf("activate enrollment: %w", err)
		}
		activated = affected > 0
	}

	if !activated {
		return nil
	}

	s.log.Info("Enrollment activated", "user_id", userID, "course_id", courseID, "amount", amount)
	if s.hub != nil {
		s.hub.Publish(sse.SSEMessage{
			Channel: userID.String(),
			Event:   sse.SSEEventEnrollmentActivated,
			Data:    map[string]interface{}{"course_id": courseID},
		})
	}

	s.sideChannel.Submit("seed-welcome-message", func(taskCtx context.Context) error {
		return s.seedWelcomeMessage(taskCtx, userID, courseID)
	})
	return nil
}

func (s *reconcileService) HandleCheckoutExpired(ctx context.Context, userID, courseID uuid.UUID) error {
	affected, err := s.enrollmentRepo.CancelIfPending(ctx, nil, userID, courseID)
	if err != nil {
		return fmt.Errorf("cancel pending enrollment: %w", err)
	}
	if affected > 0 {
		s.log.Info("Pending enrollment cancelled after checkout expiry", "user_id", userID, "course_id", courseID)
	}
	return nil
}

// seedWelcomeMessage creates (or reuses) the instructor/student thread for the
// course and inserts one system-authored welcome message, but only when the
// thread has no messages yet. Replays therefore never produce a second seed.
func (s *reconcileService) seedWelcomeMessage(ctx context.Context, studentID, courseID uuid.UUID) error {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return fmt.Errorf("load course for welcome seed: %w", err)
	}
	if len(courses) == 0 {
		return fmt.Errorf("course %s not found for welcome seed", courseID)
	}
	course := courses[0]

	conversation := &types.Conversation{
		InstructorID:  course.UserID,
		StudentID:     studentID,
		CourseKey:     courseID.String(),
		CourseID:      &courseID,
		LastMessageAt: time.Now(),
	}
	if _, err := s.conversationRepo.CreateIfAbsent(ctx, nil, conversation); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	existing, err := s.conversationRepo.GetByParticipants(ctx, nil, course.UserID, studentID, courseID.String())
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("conversation vanished after upsert")
	}

	count, err := s.messageRepo.CountByConversationID(ctx, nil, existing.ID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if count > 0 {
		return nil
	}

	welcome := &types.Message{
		ID:             uuid.New(),
		ConversationID: existing.ID,
		SenderID:       nil,
		Body:           fmt.Sprintf("Welcome to %s! Feel free to ask your instructor anything about the course.", course.Title),
	}
	if _, err := s.messageRepo.Create(ctx, nil, []*types.Message{welcome}); err != nil {
		return fmt.Errorf("create welcome message: %w", err)
	}
	return nil
}

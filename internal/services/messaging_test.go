package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
)

func newMessagingFixture() (MessagingService, *fakeConversationRepo, *fakeMessageRepo) {
	conversationRepo := newFakeConversationRepo()
	messageRepo := newFakeMessageRepo()
	svc := NewMessagingService(nil, logger.NewNop(), conversationRepo, messageRepo, nil)
	return svc, conversationRepo, messageRepo
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	svc, _, messageRepo := newMessagingFixture()
	instructorID, studentID := uuid.New(), uuid.New()

	for _, body := range []string{"", "   ", "\n\t"} {
		result, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, nil, body)
		if err != nil {
			t.Fatalf("validation failures are results, not errors: %v", err)
		}
		if result.Success || result.Error != "Message cannot be empty" {
			t.Fatalf("expected empty-body rejection, got %+v", result)
		}
	}
	if len(messageRepo.rows) != 0 {
		t.Fatalf("rejected messages must not be stored")
	}
}

func TestSendMessageRejectsOversizedBody(t *testing.T) {
	svc, _, messageRepo := newMessagingFixture()
	instructorID, studentID := uuid.New(), uuid.New()

	body := strings.Repeat("a", maxMessageLength+1)
	result, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, nil, body)
	if err != nil {
		t.Fatalf("validation failures are results, not errors: %v", err)
	}
	if result.Success {
		t.Fatalf("oversized message must be rejected")
	}
	if result.Error != "Message is too long (maximum 5000 characters)" {
		t.Fatalf("unexpected rejection message: %q", result.Error)
	}
	if len(messageRepo.rows) != 0 {
		t.Fatalf("rejected messages must not be stored")
	}

	// Exactly at the limit is fine.
	result, err = svc.SendMessage(context.Background(), studentID, instructorID, studentID, nil, strings.Repeat("a", maxMessageLength))
	if err != nil || !result.Success {
		t.Fatalf("limit-length message should pass, got result=%+v err=%v", result, err)
	}
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, _, _ := newMessagingFixture()
	_, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), uuid.New(), nil, "hello")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSendMessageCreatesAndReusesConversation(t *testing.T) {
	svc, conversationRepo, messageRepo := newMessagingFixture()
	instructorID, studentID := uuid.New(), uuid.New()
	courseID := uuid.New()

	result, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, &courseID, "first")
	if err != nil || !result.Success {
		t.Fatalf("send failed: result=%+v err=%v", result, err)
	}
	if _, err := svc.SendMessage(context.Background(), instructorID, instructorID, studentID, &courseID, "second"); err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	if len(conversationRepo.rows) != 1 {
		t.Fatalf("both messages should land in one conversation, got %d", len(conversationRepo.rows))
	}
	conv, _ := conversationRepo.GetByParticipants(context.Background(), nil, instructorID, studentID, courseID.String())
	if conv == nil {
		t.Fatalf("conversation not found under course key")
	}
	if n, _ := messageRepo.CountByConversationID(context.Background(), nil, conv.ID); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
}

func TestSendMessageSeparatesCourseThreads(t *testing.T) {
	svc, conversationRepo, _ := newMessagingFixture()
	instructorID, studentID := uuid.New(), uuid.New()
	courseID := uuid.New()

	if _, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, &courseID, "about the course"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, nil, "general question"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(conversationRepo.rows) != 2 {
		t.Fatalf("course-scoped and general threads must stay distinct, got %d", len(conversationRepo.rows))
	}
}

func TestListMessagesChecksParticipation(t *testing.T) {
	svc, conversationRepo, _ := newMessagingFixture()
	instructorID, studentID := uuid.New(), uuid.New()

	if _, err := svc.SendMessage(context.Background(), studentID, instructorID, studentID, nil, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	conv, _ := conversationRepo.GetByParticipants(context.Background(), nil, instructorID, studentID, "")

	if _, err := svc.ListMessages(context.Background(), uuid.New(), conv.ID, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider should see ErrForbidden, got %v", err)
	}
	if _, err := svc.ListMessages(context.Background(), studentID, uuid.New(), 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown conversation should be ErrNotFound, got %v", err)
	}
	messages, err := svc.ListMessages(context.Background(), studentID, conv.ID, 10)
	if err != nil || len(messages) != 1 {
		t.Fatalf("participant list failed: messages=%d err=%v", len(messages), err)
	}
}

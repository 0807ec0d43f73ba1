package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/sse"
	"github.com/studiora/studiora-backend/internal/types"
)

const maxMessageLength = 5000

// SendMessageResult carries validation failures as data instead of errors:
// a rejected message is a normal outcome, not an exceptional one.
type SendMessageResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Message *types.Message `json:"message,omitempty"`
}

type MessagingService interface {
	SendMessage(ctx context.Context, senderID, instructorID, studentID uuid.UUID, courseID *uuid.UUID, body string) (*SendMessageResult, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*types.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*types.Message, error)
}

type messagingService struct {
	db               *gorm.DB
	log              *logger.Logger
	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	hub              *sse.SSEHub
}

func NewMessagingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	hub *sse.SSEHub,
) MessagingService {
	serviceLog := baseLog.With("service", "MessagingService")
	return &messagingService{
		db:               db,
		log:              serviceLog,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		hub:              hub,
	}
}

func (s *messagingService) SendMessage(ctx context.Context, senderID, instructorID, studentID uuid.UUID, courseID *uuid.UUID, body string) (*SendMessageResult, error) {
	if strings.TrimSpace(body) == "" {
		return &SendMessageResult{Success: false, Error: "Message cannot be empty"}, nil
	}
	if len(body) > maxMessageLength {
		return &SendMessageResult{
			Success: false,
			Error:   fmt.Sprintf("Message is too long (maximum %d characters)", maxMessageLength),
		}, nil
	}
	if senderID != instructorID && senderID != studentID {
		return nil, fmt.Errorf("%w: sender is not a participant", ErrForbidden)
	}

	courseKey := ""
	if courseID != nil {
		courseKey = courseID.String()
	}

	now := time.Now()
	conversation := &types.Conversation{
		InstructorID:  instructorID,
		StudentID:     studentID,
		CourseKey:     courseKey,
		CourseID:      courseID,
		LastMessageAt: now,
	}
	if _, err := s.conversationRepo.CreateIfAbsent(ctx, nil, conversation); err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	existing, err := s.conversationRepo.GetByParticipants(ctx, nil, instructorID, studentID, courseKey)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("conversation vanished after upsert")
	}

	message := &types.Message{
		ID:             uuid.New(),
		ConversationID: existing.ID,
		SenderID:       &senderID,
		Body:           body,
	}
	if _, err := s.messageRepo.Create(ctx, nil, []*types.Message{message}); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.conversationRepo.TouchLastMessageAt(ctx, nil, existing.ID, now); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	if s.hub != nil {
		for _, participant := range []uuid.UUID{instructorID, studentID} {
			s.hub.Publish(sse.SSEMessage{
				Channel: participant.String(),
				Event:   sse.SSEEventMessageCreated,
				Data:    map[string]interface{}{"message": message},
			})
		}
	}

	return &SendMessageResult{Success: true, Message: message}, nil
}

func (s *messagingService) ListConversations(ctx context.Context, userID uuid.UUID) ([]*types.Conversation, error) {
	conversations, err := s.conversationRepo.ListForUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

func (s *messagingService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conversation == nil {
		return nil, fmt.Errorf("%w: conversation", ErrNotFound)
	}
	if conversation.InstructorID != userID && conversation.StudentID != userID {
		return nil, fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	messages, err := s.messageRepo.ListByConversationID(ctx, nil, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/services"
)

type MessagingHandler struct {
	log              *logger.Logger
	messagingService services.MessagingService
}

func NewMessagingHandler(log *logger.Logger, messagingService services.MessagingService) *MessagingHandler {
	return &MessagingHandler{
		log:              log.With("handler", "MessagingHandler"),
		messagingService: messagingService,
	}
}

type sendMessageRequest struct {
	InstructorID uuid.UUID  `json:"instructor_id" binding:"required"`
	StudentID    uuid.UUID  `json:"student_id" binding:"required"`
	CourseID     *uuid.UUID `json:"course_id"`
	Body         string     `json:"body"`
}

func (h *MessagingHandler) SendMessage(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.messagingService.SendMessage(c.Request.Context(), rd.UserID, req.InstructorID, req.StudentID, req.CourseID, req.Body)
	if err != nil {
		RespondServiceError(c, "send_message_failed", err)
		return
	}
	RespondOK(c, result)
}

func (h *MessagingHandler) ListConversations(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	conversations, err := h.messagingService.ListConversations(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, "load_conversations_failed", err)
		return
	}
	RespondOK(c, gin.H{"conversations": conversations})
}

func (h *MessagingHandler) ListMessages(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := h.messagingService.ListMessages(c.Request.Context(), rd.UserID, conversationID, limit)
	if err != nil {
		RespondServiceError(c, "load_messages_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}

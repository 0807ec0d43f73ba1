package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/services"
)

type EnrollmentHandler struct {
	log               *logger.Logger
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(log *logger.Logger, enrollmentService services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:               log.With("handler", "EnrollmentHandler"),
		enrollmentService: enrollmentService,
	}
}

func (h *EnrollmentHandler) Checkout(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	result, err := h.enrollmentService.InitiateCheckout(c.Request.Context(), rd.UserID, courseID)
	if err != nil {
		h.log.Error("Checkout failed", "error", err, "user_id", rd.UserID, "course_id", courseID)
		RespondServiceError(c, "checkout_failed", err)
		return
	}
	RespondOK(c, result)
}

func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	enrollments, err := h.enrollmentService.ListForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, "load_enrollments_failed", err)
		return
	}
	RespondOK(c, gin.H{"enrollments": enrollments})
}

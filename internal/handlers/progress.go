package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/services"
)

type ProgressHandler struct {
	log             *logger.Logger
	progressService services.ProgressService
}

func NewProgressHandler(log *logger.Logger, progressService services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:             log.With("handler", "ProgressHandler"),
		progressService: progressService,
	}
}

type videoProgressRequest struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

func (h *ProgressHandler) RecordVideoProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	var req videoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	progress, err := h.progressService.RecordVideoProgress(c.Request.Context(), rd.UserID, lessonID, req.CurrentTime, req.Duration)
	if err != nil {
		RespondServiceError(c, "record_video_progress_failed", err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

func (h *ProgressHandler) ToggleLessonCompletion(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	progress, err := h.progressService.ToggleLessonCompletion(c.Request.Context(), rd.UserID, lessonID)
	if err != nil {
		RespondServiceError(c, "toggle_lesson_completion_failed", err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
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
	progress, err := h.progressService.GetCourseProgress(c.Request.Context(), rd.UserID, courseID)
	if err != nil {
		RespondServiceError(c, "load_course_progress_failed", err)
		return
	}
	RespondOK(c, progress)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/services"
)

type LessonHandler struct {
	log           *logger.Logger
	lessonService services.LessonService
}

func NewLessonHandler(log *logger.Logger, lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{
		log:           log.With("handler", "LessonHandler"),
		lessonService: lessonService,
	}
}

type createLessonRequest struct {
	Title           string  `json:"title" binding:"required"`
	IsFree          bool    `json:"is_free"`
	VideoURL        string  `json:"video_url"`
	VideoBucketKey  string  `json:"video_bucket_key"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (h *LessonHandler) Create(c *gin.Context) {
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	var req createLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lesson, err := h.lessonService.Create(c.Request.Context(), chapterID, services.CreateLessonInput{
		Title:           req.Title,
		IsFree:          req.IsFree,
		VideoURL:        req.VideoURL,
		VideoBucketKey:  req.VideoBucketKey,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		RespondServiceError(c, "create_lesson_failed", err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) ListByChapter(c *gin.Context) {
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	lessons, err := h.lessonService.ListByChapter(c.Request.Context(), chapterID)
	if err != nil {
		RespondServiceError(c, "load_lessons_failed", err)
		return
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

func (h *LessonHandler) Get(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	lesson, err := h.lessonService.GetForViewer(c.Request.Context(), lessonID)
	if err != nil {
		RespondServiceError(c, "load_lesson_failed", err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}

type updateLessonRequest struct {
	Title           *string  `json:"title"`
	IsFree          *bool    `json:"is_free"`
	VideoURL        *string  `json:"video_url"`
	VideoBucketKey  *string  `json:"video_bucket_key"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

func (h *LessonHandler) Update(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	var req updateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.lessonService.Update(c.Request.Context(), lessonID, services.UpdateLessonInput{
		Title:           req.Title,
		IsFree:          req.IsFree,
		VideoURL:        req.VideoURL,
		VideoBucketKey:  req.VideoBucketKey,
		DurationSeconds: req.DurationSeconds,
	}); err != nil {
		RespondServiceError(c, "update_lesson_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	if err := h.lessonService.Delete(c.Request.Context(), lessonID); err != nil {
		RespondServiceError(c, "delete_lesson_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

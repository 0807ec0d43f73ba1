package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/services"
	"github.com/studiora/studiora-backend/internal/types"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

func (h *CourseHandler) ListPublished(c *gin.Context) {
	courses, err := h.courseService.ListPublished(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.log.Error("ListPublished failed", "error", err)
		RespondServiceError(c, "load_courses_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetBySlug(c *gin.Context) {
	course, err := h.courseService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondServiceError(c, "load_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) ListOwn(c *gin.Context) {
	courses, err := h.courseService.ListOwn(c.Request.Context())
	if err != nil {
		RespondServiceError(c, "load_courses_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

type createCourseRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	PriceRef    string            `json:"price_ref"`
	Category    string            `json:"category"`
	Level       types.CourseLevel `json:"level"`
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.Create(c.Request.Context(), services.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		PriceRef:    req.PriceRef,
		Category:    req.Category,
		Level:       req.Level,
	})
	if err != nil {
		RespondServiceError(c, "create_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

type updateCourseRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Price       *float64           `json:"price"`
	PriceRef    *string            `json:"price_ref"`
	Category    *string            `json:"category"`
	Level       *types.CourseLevel `json:"level"`
}

func (h *CourseHandler) Update(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.Update(c.Request.Context(), courseID, services.UpdateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		PriceRef:    req.PriceRef,
		Category:    req.Category,
		Level:       req.Level,
	})
	if err != nil {
		RespondServiceError(c, "update_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) Publish(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	if err := h.courseService.Publish(c.Request.Context(), courseID); err != nil {
		RespondServiceError(c, "publish_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": types.CoursePublished})
}

func (h *CourseHandler) Archive(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	if err := h.courseService.Archive(c.Request.Context(), courseID); err != nil {
		RespondServiceError(c, "archive_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": types.CourseArchived})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	if err := h.courseService.Delete(c.Request.Context(), courseID); err != nil {
		RespondServiceError(c, "delete_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

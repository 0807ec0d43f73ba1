package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/services"
)

type ChapterHandler struct {
	log            *logger.Logger
	chapterService services.ChapterService
}

func NewChapterHandler(log *logger.Logger, chapterService services.ChapterService) *ChapterHandler {
	return &ChapterHandler{
		log:            log.With("handler", "ChapterHandler"),
		chapterService: chapterService,
	}
}

type createChapterRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *ChapterHandler) Create(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req createChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	chapter, err := h.chapterService.Create(c.Request.Context(), courseID, req.Title)
	if err != nil {
		RespondServiceError(c, "create_chapter_failed", err)
		return
	}
	RespondOK(c, gin.H{"chapter": chapter})
}

func (h *ChapterHandler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	chapters, err := h.chapterService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, "load_chapters_failed", err)
		return
	}
	RespondOK(c, gin.H{"chapters": chapters})
}

type renameChapterRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *ChapterHandler) Rename(c *gin.Context) {
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	var req renameChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.chapterService.Rename(c.Request.Context(), chapterID, req.Title); err != nil {
		RespondServiceError(c, "rename_chapter_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}

func (h *ChapterHandler) Delete(c *gin.Context) {
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	if err := h.chapterService.Delete(c.Request.Context(), chapterID); err != nil {
		RespondServiceError(c, "delete_chapter_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type reorderChaptersRequest struct {
	OrderedIDs []uuid.UUID `json:"ordered_ids" binding:"required"`
}

func (h *ChapterHandler) Reorder(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	var req reorderChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.chapterService.Reorder(c.Request.Context(), courseID, req.OrderedIDs); err != nil {
		RespondServiceError(c, "reorder_chapters_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}

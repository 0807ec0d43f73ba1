package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/services"
)

type UploadHandler struct {
	log           *logger.Logger
	uploadService services.UploadService
}

func NewUploadHandler(log *logger.Logger, uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{
		log:           log.With("handler", "UploadHandler"),
		uploadService: uploadService,
	}
}

func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	result, err := h.uploadService.UploadAvatar(
		c.Request.Context(),
		rd.UserID,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		h.log.Error("UploadAvatar failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, "upload_avatar_failed", err)
		return
	}
	RespondOK(c, result)
}

func (h *UploadHandler) UploadMedia(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	result, err := h.uploadService.UploadMedia(
		c.Request.Context(),
		rd.UserID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		h.log.Error("UploadMedia failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, "upload_media_failed", err)
		return
	}
	RespondOK(c, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/services"
	"github.com/studiora/studiora-backend/internal/types"
)

type UserHandler struct {
	log             *logger.Logger
	identityService services.IdentityService
	userService     services.UserService
}

func NewUserHandler(log *logger.Logger, identityService services.IdentityService, userService services.UserService) *UserHandler {
	return &UserHandler{
		log:             log.With("handler", "UserHandler"),
		identityService: identityService,
		userService:     userService,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.identityService.GetMe(c.Request.Context())
	if err != nil {
		RespondServiceError(c, "load_me_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

type changeRoleRequest struct {
	Role types.UserRole `json:"role" binding:"required"`
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.userService.ChangeRole(c.Request.Context(), targetID, req.Role); err != nil {
		h.log.Error("ChangeRole failed", "error", err, "target_id", targetID)
		RespondServiceError(c, "change_role_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}

type setBannedRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

func (h *UserHandler) SetBanned(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	var req setBannedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.userService.SetBanned(c.Request.Context(), targetID, *req.Banned); err != nil {
		h.log.Error("SetBanned failed", "error", err, "target_id", targetID)
		RespondServiceError(c, "set_banned_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}

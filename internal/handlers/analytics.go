package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/services"
	"github.com/studiora/studiora-backend/internal/types"
)

type AnalyticsHandler struct {
	log              *logger.Logger
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(log *logger.Logger, analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:              log.With("handler", "AnalyticsHandler"),
		analyticsService: analyticsService,
	}
}

func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if rd.Role != types.RoleInstructor && rd.Role != types.RoleAdmin {
		RespondError(c, http.StatusForbidden, "instructor_only", nil)
		return
	}
	periodDays, _ := strconv.Atoi(c.DefaultQuery("period_days", "30"))
	overview, err := h.analyticsService.GetInstructorOverview(c.Request.Context(), rd.UserID, periodDays)
	if err != nil {
		h.log.Error("GetOverview failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, "load_overview_failed", err)
		return
	}
	RespondOK(c, overview)
}

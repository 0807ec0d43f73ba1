package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/requestdata"
	"github.com/studiora/studiora-backend/internal/sse"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	userID := rd.UserID
	h.log.Info("SSEStream open", "user_id", userID)

	client := h.hub.NewSSEClient(userID)
	// Every connection subscribes to its own user channel; that is where
	// message and enrollment events land.
	h.hub.AddChannel(client, userID.String())
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

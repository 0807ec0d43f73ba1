package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/services"
)

// WebhookHandler terminates the two inbound event streams: payment provider
// checkout events and identity provider user lifecycle events. Both are
// signature-verified over the raw body before anything is decoded.
type WebhookHandler struct {
	log              *logger.Logger
	payments         services.PaymentClient
	reconcileService services.ReconcileService
	identityService  services.IdentityService
	identityVerifier *svix.Webhook
}

func NewWebhookHandler(
	log *logger.Logger,
	payments services.PaymentClient,
	reconcileService services.ReconcileService,
	identityService services.IdentityService,
) *WebhookHandler {
	handlerLog := log.With("handler", "WebhookHandler")

	var verifier *svix.Webhook
	if secret := os.Getenv("IDENTITY_WEBHOOK_SECRET"); secret != "" {
		wh, err := svix.NewWebhook(secret)
		if err != nil {
			handlerLog.Warn("Could not init identity webhook verifier", "error", err)
		} else {
			verifier = wh
		}
	} else {
		handlerLog.Warn("IDENTITY_WEBHOOK_SECRET not set, identity webhooks will be rejected")
	}

	return &WebhookHandler{
		log:              handlerLog,
		payments:         payments,
		reconcileService: reconcileService,
		identityService:  identityService,
		identityVerifier: verifier,
	}
}

func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_payload", err)
		return
	}

	event, err := h.payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warn("Stripe webhook signature verification failed", "error", err)
		RespondError(c, http.StatusBadRequest, "invalid_signature", err)
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		userID, err := uuid.Parse(event.UserID)
		if err != nil {
			h.log.Error("Stripe event carries no usable userId metadata", "type", event.Type, "error", err)
			RespondError(c, http.StatusBadRequest, "missing_metadata", err)
			return
		}
		courseID, err := uuid.Parse(event.CourseID)
		if err != nil {
			h.log.Error("Stripe event carries no usable courseId metadata", "type", event.Type, "error", err)
			RespondError(c, http.StatusBadRequest, "missing_metadata", err)
			return
		}

		if event.Type == "checkout.session.completed" {
			err = h.reconcileService.HandleCheckoutCompleted(c.Request.Context(), userID, courseID, event.AmountTotal)
		} else {
			err = h.reconcileService.HandleCheckoutExpired(c.Request.Context(), userID, courseID)
		}
		if err != nil {
			h.log.Error("Stripe event reconciliation failed", "type", event.Type, "error", err)
			RespondError(c, http.StatusInternalServerError, "reconcile_failed", err)
			return
		}
	default:
		// Unhandled types are acknowledged so the provider stops retrying.
		h.log.Info("Ignoring unhandled Stripe event type", "type", event.Type)
	}

	RespondOK(c, gin.H{"received": true})
}

// identityEventPayload mirrors the Clerk-style event shape.
type identityEventPayload struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

func (h *WebhookHandler) HandleIdentity(c *gin.Context) {
	if h.identityVerifier == nil {
		RespondError(c, http.StatusServiceUnavailable, "webhook_not_configured", nil)
		return
	}
	payload, err := c.GetRawData()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_payload", err)
		return
	}
	if err := h.identityVerifier.Verify(payload, c.Request.Header); err != nil {
		h.log.Warn("Identity webhook signature verification failed", "error", err)
		RespondError(c, http.StatusBadRequest, "invalid_signature", err)
		return
	}

	var evt identityEventPayload
	if err := json.Unmarshal(payload, &evt); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	email := ""
	if len(evt.Data.EmailAddresses) > 0 {
		email = evt.Data.EmailAddresses[0].EmailAddress
	}
	name := evt.Data.FirstName
	if evt.Data.LastName != "" {
		if name != "" {
			name += " "
		}
		name += evt.Data.LastName
	}

	if err := h.identityService.ApplyIdentityEvent(c.Request.Context(), services.IdentityEvent{
		Type:       evt.Type,
		ExternalID: evt.Data.ID,
		Email:      email,
		Name:       name,
	}); err != nil {
		h.log.Error("Identity event application failed", "type", evt.Type, "error", err)
		RespondError(c, http.StatusInternalServerError, "apply_event_failed", err)
		return
	}
	RespondOK(c, gin.H{"received": true})
}

package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"craftlog/internal/api"
	"craftlog/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// WebhookHandler receives out-of-band payment notifications. These routes
// are unauthenticated; authenticity comes from the gateway signature, not a
// session token.
type WebhookHandler struct {
	service             Service
	stripeWebhookSecret string
}

func NewWebhookHandler(service Service, stripeWebhookSecret string) *WebhookHandler {
	return &WebhookHandler{service: service, stripeWebhookSecret: stripeWebhookSecret}
}

type gatewayNotification struct {
	GatewayRef string     `json:"gateway_ref" binding:"required"`
	Signature  string     `json:"signature" binding:"required"`
	Kind       IntentKind `json:"kind" binding:"required"`
}

// @Summary      Payment gateway notification
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body payment.gatewayNotification true "Signed gateway notification"
// @Success      200 {object} payment.VerificationResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /webhooks/payment [post]
func (h *WebhookHandler) HandleGatewayNotification(c *gin.Context) {
	var notification gatewayNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid notification payload"})
		return
	}
	if !notification.Kind.Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "kind must be topup or subscription"})
		return
	}

	result, err := h.service.VerifyByRef(c.Request.Context(), VerifyRequest{
		GatewayRef: notification.GatewayRef,
		Signature:  notification.Signature,
		Kind:       notification.Kind,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownIntent):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
		case errors.Is(err, ErrSignatureMismatch):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "payment signature mismatch"})
		default:
			logger.WithError(err).Error("gateway notification processing failed")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to process notification"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary      Stripe webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to read request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.stripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.WithError(err).Warn("stripe webhook signature verification failed")
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid webhook signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "malformed checkout session"})
			return
		}

		kind := KindTopUp
		if session.Mode == stripe.CheckoutSessionModeSubscription {
			kind = KindSubscription
		}

		// Stripe already authenticated the event; the session lookup inside
		// VerifySignature is the second factor.
		_, err := h.service.VerifyByRef(c.Request.Context(), VerifyRequest{
			GatewayRef: session.ID,
			Kind:       kind,
		})
		if err != nil && !errors.Is(err, ErrUnknownIntent) {
			logger.WithError(err).Error("stripe checkout completion processing failed")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to process event"})
			return
		}
	default:
		logger.Debug("ignoring stripe event", "type", event.Type)
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}

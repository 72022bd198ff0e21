package subscription

import (
	"errors"
	"net/http"

	"craftlog/internal/api"
	"craftlog/internal/auth"
	"craftlog/internal/email"
	"craftlog/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	emails  *email.Service
}

func NewHandlerWithService(service Service, emails *email.Service) *Handler {
	return &Handler{service: service, emails: emails}
}

// @Summary      Get current subscription
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} subscription.UserSubscription
// @Failure      401 {object} api.ErrorResponse
// @Router       /billing/subscription [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	sub, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// @Summary      Cancel subscription at period end
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} subscription.UserSubscription
// @Failure      404 {object} api.ErrorResponse
// @Router       /billing/cancel-subscription [post]
func (h *Handler) CancelSubscription(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	sub, err := h.service.Cancel(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "no active subscription to cancel"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to cancel subscription"})
		return
	}

	h.sendCancellationNotice(c, sub)
	c.JSON(http.StatusOK, sub)
}

// Cancellation notices are best effort; a queue failure never fails the
// cancel response.
func (h *Handler) sendCancellationNotice(c *gin.Context, sub *UserSubscription) {
	if h.emails == nil {
		return
	}
	userEmail, ok := auth.GetUserEmail(c)
	if !ok || userEmail == "" {
		return
	}

	planName := sub.PlanID
	if sub.Plan != nil {
		planName = sub.Plan.DisplayName
	}
	if err := h.emails.SendCancellationNotice(c.Request.Context(), userEmail, userEmail,
		planName, sub.CurrentPeriodEnd); err != nil {
		logger.WithError(err).Error("failed to queue cancellation notice")
	}
}

// @Summary      Run due subscription renewals
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} subscription.RenewalStats
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/renewals/run [post]
func (h *Handler) RunRenewals(c *gin.Context) {
	stats, err := h.service.RunRenewals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "renewal pass failed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

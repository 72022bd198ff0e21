package payment

import (
	"errors"
	"net/http"

	"craftlog/internal/api"
	"craftlog/internal/auth"
	"craftlog/internal/catalog"
	"craftlog/internal/email"
	"craftlog/internal/ledger"
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

type checkoutTopUpRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type checkoutSubscriptionRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type refundRequest struct {
	GatewayRef string `json:"gateway_ref" binding:"required"`
}

// @Summary      Create top-up checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.checkoutTopUpRequest true "Credit product to buy"
// @Success      201 {object} payment.CheckoutPayload
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /billing/topup-checkout [post]
func (h *Handler) CreateTopUpCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req checkoutTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "product_id is required"})
		return
	}

	payload, err := h.service.CreateTopUpIntent(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "credit product not found"})
		case errors.Is(err, ErrInactiveCatalogItem):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "credit product is not available"})
		case errors.Is(err, ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create checkout"})
		}
		return
	}

	c.JSON(http.StatusCreated, payload)
}

// @Summary      Create subscription checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.checkoutSubscriptionRequest true "Plan to subscribe to"
// @Success      201 {object} payment.CheckoutPayload
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /billing/subscription-checkout [post]
func (h *Handler) CreateSubscriptionCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req checkoutSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "plan_id is required"})
		return
	}

	payload, err := h.service.CreateSubscriptionIntent(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "subscription plan not found"})
		case errors.Is(err, ErrFreePlanCheckout):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "the free plan does not require checkout"})
		case errors.Is(err, ErrInactiveCatalogItem):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "subscription plan is not available"})
		case errors.Is(err, ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create checkout"})
		}
		return
	}

	c.JSON(http.StatusCreated, payload)
}

// @Summary      Verify a completed payment
// @Description  Confirms a gateway payment and credits the wallet exactly once.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.VerifyRequest true "Gateway confirmation"
// @Success      200 {object} payment.VerificationResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /billing/verify-payment [post]
func (h *Handler) VerifyPayment(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "gateway_ref and kind are required"})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "kind must be topup or subscription"})
		return
	}

	result, err := h.service.Verify(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownIntent):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
		case errors.Is(err, ErrSignatureMismatch):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "payment signature mismatch"})
		case errors.Is(err, ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to verify payment"})
		}
		return
	}

	h.sendReceipt(c, result)
	c.JSON(http.StatusOK, result)
}

// Receipt delivery is best effort; a queue failure never fails the
// verification response. Subscription confirmations get the renewal notice,
// top-ups the plain receipt.
func (h *Handler) sendReceipt(c *gin.Context, result *VerificationResult) {
	if h.emails == nil || result.AlreadyProcessed {
		return
	}
	userEmail, ok := auth.GetUserEmail(c)
	if !ok || userEmail == "" {
		return
	}

	if result.Subscription != nil {
		planName := result.Subscription.PlanID
		if result.Subscription.Plan != nil {
			planName = result.Subscription.Plan.DisplayName
		}
		if err := h.emails.SendRenewalNotice(c.Request.Context(), userEmail, userEmail,
			planName, result.Credits, result.Subscription.CurrentPeriodEnd); err != nil {
			logger.WithError(err).Error("failed to queue renewal notice")
		}
		return
	}

	if err := h.emails.SendPaymentReceipt(c.Request.Context(), userEmail, userEmail,
		result.Credits, result.AmountCents, "usd", result.GatewayRef); err != nil {
		logger.WithError(err).Error("failed to queue payment receipt")
	}
}

// @Summary      Refund a fulfilled top-up
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.refundRequest true "Gateway reference of the payment"
// @Success      200 {object} payment.VerificationResult
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/refunds [post]
func (h *Handler) RefundPayment(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "gateway_ref is required"})
		return
	}

	result, err := h.service.Refund(c.Request.Context(), req.GatewayRef)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownIntent):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
		case errors.Is(err, ErrNotRefundable):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "payment is not refundable"})
		case errors.Is(err, ledger.ErrNegativeBalance):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "credits already spent, cannot refund"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to refund payment"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"craftlog/internal/api"
	"craftlog/internal/auth"
	"craftlog/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB, rdb *redis.Client) *Handler {
	repo := ledger.NewRepository(db)
	return &Handler{
		service: NewService(repo, ledger.NewProjector(repo, rdb)),
	}
}

func NewHandlerWithService(service Service) *Handler {
	return &Handler{service: service}
}

type ConsumeRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

// @Summary      Get wallet balance
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ledger.Balance
// @Failure      401 {object} api.ErrorResponse
// @Router       /billing/wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	b, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// @Summary      List wallet transactions
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int    false "Page number"
// @Param        limit query int    false "Page size"
// @Param        type  query string false "Transaction type filter"
// @Success      200 {object} wallet.TransactionPage
// @Failure      400 {object} api.ErrorResponse
// @Router       /billing/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	txType := c.Query("type")

	result, err := h.service.ListTransactions(c.Request.Context(), userID, page, limit, txType)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidEntry) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unknown transaction type"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary      Consume credits for a chargeable action
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body wallet.ConsumeRequest true "Consumption request"
// @Success      200 {object} wallet.ConsumptionResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Router       /billing/consume [post]
func (h *Handler) Consume(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount must be positive and reason is required"})
		return
	}

	result, err := h.service.Consume(c.Request.Context(), userID, req.Amount, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrInsufficientCredits):
			c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to consume credits"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary      Audit an account's ledger
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userID path int true "User ID"
// @Success      200 {object} ledger.AuditReport
// @Failure      400 {object} api.ErrorResponse
// @Router       /admin/accounts/{userID}/audit [get]
func (h *Handler) AuditAccount(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid user id"})
		return
	}

	report, err := h.service.Audit(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to audit account"})
		return
	}

	c.JSON(http.StatusOK, report)
}

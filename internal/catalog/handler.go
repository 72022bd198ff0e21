package catalog

import (
	"net/http"

	"craftlog/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// @Summary      List subscription plans
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} catalog.SubscriptionPlan
// @Failure      500 {object} api.ErrorResponse
// @Router       /billing/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.repo.ListPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary      List credit products
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} catalog.CreditProduct
// @Failure      500 {object} api.ErrorResponse
// @Router       /billing/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.repo.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/service"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	Address   string           `json:"address" binding:"required"`
	Email     string           `json:"email" binding:"required"`
	Contact   string           `json:"contact" binding:"required"`
	CartTotal *decimal.Decimal `json:"cartTotal"`
}

// CreateOrder handles POST /orders.
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req, "address, email and contact are required") {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), identity(c), service.CreateOrderInput{
		Address:   req.Address,
		Email:     req.Email,
		Contact:   req.Contact,
		CartTotal: req.CartTotal,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"orderId": order.ID,
	})
}

// GetUserOrders handles GET /orders/user-orders.
func (h *Handlers) GetUserOrders(c *gin.Context) {
	orders, err := h.orders.GetUserOrders(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

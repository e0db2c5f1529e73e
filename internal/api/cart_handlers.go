package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/service"
	"github.com/shopspring/decimal"
)

// AddToCartRequest mirrors the storefront client's payload. Title, price and
// image are accepted for compatibility; the stored line uses the catalog
// values.
type AddToCartRequest struct {
	ProductID        string           `json:"productId" binding:"required"`
	Title            string           `json:"title"`
	Price            *decimal.Decimal `json:"price"`
	Image            string           `json:"image"`
	SelectedQuantity int              `json:"selectedQuantity"`
}

type CartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type UpdateCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

type cartResponse struct {
	Status      bool         `json:"status"`
	UpdatedCart *models.Cart `json:"updatedCart,omitempty"`
	Cart        *models.Cart `json:"cart,omitempty"`
}

// AddToCart handles POST /cart. A newly created cart answers 201.
func (h *Handlers) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if !bindJSON(c, &req, "invalid product") {
		return
	}

	cart, created, err := h.carts.AddItem(c.Request.Context(), identity(c), service.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.SelectedQuantity,
	})
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, cartResponse{Status: true, UpdatedCart: cart})
}

// GetCart handles GET /cart/get-cart.
func (h *Handlers) GetCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Status: true, Cart: cart})
}

// RemoveCartItem handles POST /cart/remove-cart-item.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	var req CartItemRequest
	if !bindJSON(c, &req, "invalid product") {
		return
	}

	cart, err := h.carts.RemoveItem(c.Request.Context(), identity(c), req.ProductID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Status: true, UpdatedCart: cart})
}

// UpdateCartItemQuantity handles POST /cart/update-cart-item-quantity.
func (h *Handlers) UpdateCartItemQuantity(c *gin.Context) {
	var req UpdateCartItemRequest
	if !bindJSON(c, &req, "productId and quantity are required") {
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), identity(c), req.ProductID, *req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Status: true, UpdatedCart: cart})
}

// DeleteCart handles DELETE /cart/delete-cart.
func (h *Handlers) DeleteCart(c *gin.Context) {
	if err := h.carts.DeleteCart(c.Request.Context(), identity(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart deleted successfully"})
}

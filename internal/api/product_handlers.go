package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/service"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Title       string          `json:"title" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Categories  []string        `json:"categories"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
}

type UpdateProductRequest struct {
	Title       *string          `json:"title"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Categories  []string         `json:"categories"`
	Size        *string          `json:"size"`
	Color       *string          `json:"color"`
}

// ListProducts handles GET /products?new=<any>|category=x. Any non-empty
// new value selects the newest listing.
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context(), service.ListProductsInput{
		New:      c.Query("new") != "",
		Category: c.Query("category"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/get/:id.
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /products.
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if !bindJSON(c, &req, "title and price are required") {
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), identity(c), service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
		Size:        req.Size,
		Color:       req.Color,
		Price:       req.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/:id.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if !bindJSON(c, &req, "invalid product fields") {
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), identity(c), c.Param("id"), service.UpdateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
		Size:        req.Size,
		Color:       req.Color,
		Price:       req.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:id.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

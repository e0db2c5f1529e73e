package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/service"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"isAdmin"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"isAdmin"`
	AccessToken string    `json:"accessToken"`
}

// Register handles POST /auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req, "all fields are mandatory") {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req, "all fields are mandatory") {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		ID:          res.User.ID,
		Username:    res.User.Username,
		Email:       res.User.Email,
		IsAdmin:     res.User.IsAdmin,
		AccessToken: res.AccessToken,
	})
}

// GetUser handles GET /users/:id.
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Package api exposes the storefront services over HTTP with gin.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	Service string
	// ExposeInternalErrors puts internal error details in response bodies.
	ExposeInternalErrors bool
	CORSOrigins          []string
	Tracing              bool
	// Ready reports whether dependencies can serve traffic.
	Ready func(ctx context.Context) error
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(cfg RouterConfig, h *Handlers, authn Authenticator, log *slog.Logger) *gin.Engine {
	router := gin.New()

	if cfg.Tracing {
		router.Use(otelgin.Middleware(cfg.Service))
	}
	router.Use(
		RequestIDMiddleware(),
		LoggingMiddleware(log),
		MetricsMiddleware(),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			log.ErrorContext(c.Request.Context(), "panic recovered",
				"panic", fmt.Sprint(recovered),
				"request_id", c.GetString(requestIDKey),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}),
		cors.New(corsConfig(cfg.CORSOrigins)),
		ErrorMiddleware(log, cfg.ExposeInternalErrors),
	)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found: " + c.Request.URL.Path})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				log.WarnContext(c.Request.Context(), "readiness check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := AuthMiddleware(authn)
	requireAdmin := RequireAdmin()

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
	}

	router.GET("/users/:id", requireAuth, h.GetUser)

	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/get/:id", h.GetProduct)
		products.POST("", requireAuth, requireAdmin, h.CreateProduct)
		products.PUT("/:id", requireAuth, requireAdmin, h.UpdateProduct)
		products.DELETE("/:id", requireAuth, requireAdmin, h.DeleteProduct)
	}

	cart := router.Group("/cart", requireAuth)
	{
		cart.POST("", h.AddToCart)
		cart.GET("/get-cart", h.GetCart)
		cart.POST("/remove-cart-item", h.RemoveCartItem)
		cart.POST("/update-cart-item-quantity", h.UpdateCartItemQuantity)
		cart.DELETE("/delete-cart", h.DeleteCart)
	}

	orders := router.Group("/orders", requireAuth)
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/user-orders", h.GetUserOrders)
	}

	return router
}

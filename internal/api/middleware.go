package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	identityKey     = "identity"
)

// Authenticator turns an Authorization header value into an identity.
type Authenticator interface {
	Authenticate(header string) (auth.Identity, error)
}

// RequestIDMiddleware ensures every request has an X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		log.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// MetricsMiddleware records request count and latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// ErrorMiddleware renders the last error attached with c.Error as
// {"error": message}. Internal details are hidden when exposeInternal is
// false.
func ErrorMiddleware(log *slog.Logger, exposeInternal bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		kind := apperr.KindOf(err)

		message := "internal server error"
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}

		if kind == apperr.KindInternal {
			log.ErrorContext(c.Request.Context(), "request failed",
				"error", err,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
			)
			if exposeInternal {
				message = err.Error()
			}
		}

		c.JSON(kind.HTTPStatus(), gin.H{"error": message})
	}
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's identity on the context.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := authn.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.AuthorizeAdmin(identity(c)); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

// RequestIDConfig controls where request IDs come from.
type RequestIDConfig struct {
	// AcceptClient reuses an incoming X-Request-ID when it is a UUID, so a
	// deskctl call and its server log line share one ID. Anything else is
	// replaced.
	AcceptClient bool
}

// RequestID tags every request with a fresh UUID.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig tags every request with an ID, stores it under
// "request_id" in the gin.Context and in the logger context attributes, and
// echoes it in the X-Request-ID response header.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if cfg.AcceptClient {
			id = clientRequestID(c.GetHeader(requestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id)),
		)
		c.Next()
	}
}

// clientRequestID returns the canonical form of a UUID header value, or ""
// for anything that does not parse.
func clientRequestID(v string) string {
	if v == "" || len(v) > 45 {
		return ""
	}
	parsed, err := uuid.Parse(v)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// GetRequestID returns the ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

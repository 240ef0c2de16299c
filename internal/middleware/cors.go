package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig configures CORSWithConfig.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to call the admin. ["*"] allows
	// any origin; an empty list allows none.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool

	// ExposeHeaders are the response headers a cross-origin page may read.
	// htmx needs its HX-* headers to act on toasts and redirects, and
	// exports need Content-Disposition for the file name.
	ExposeHeaders []string

	// MaxAge is how long a browser may cache a preflight response.
	MaxAge time.Duration
}

// DefaultCORSConfig allows any origin without credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin", "Accept", "Content-Type", "Authorization", "X-Request-ID", "X-CSRF-Token",
			"HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger", "HX-Prompt",
		},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Disposition",
			"HX-Trigger", "HX-Redirect", "HX-Retarget", "HX-Reswap",
		},
		MaxAge: 24 * time.Hour,
	}
}

// CORSWithConfig answers preflight requests and adds the CORS response
// headers for allowed origins. Requests from other origins pass through
// without CORS headers, so the browser blocks them.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	exposed := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))
	wildcard := slices.Contains(cfg.AllowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")

		switch {
		case wildcard && !cfg.AllowCredentials:
			c.Header("Access-Control-Allow-Origin", "*")
		case wildcard || slices.Contains(cfg.AllowOrigins, origin):
			// credentialed responses must name the origin
			c.Header("Access-Control-Allow-Origin", origin)
		default:
			c.Next()
			return
		}
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if exposed != "" {
			c.Header("Access-Control-Expose-Headers", exposed)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		if cfg.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

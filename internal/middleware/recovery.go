package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/pkg"
)

// Recovery turns a panic into a 500 and logs it with the stack and the
// caller's identity.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			attrs := append([]slog.Attr{
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			}, identityAttrs(c)...)
			logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic recovered", attrs...)

			pkg.Abort(c, http.StatusInternalServerError, "internal server error")
		}()
		c.Next()
	}
}

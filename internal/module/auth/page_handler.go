package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/middleware"
)

const (
	loginTemplate = "auth/login.html"
	homePath      = "/"
)

// PageHandler serves the browser login and logout flow. The session token
// travels in an HttpOnly cookie.
type PageHandler struct {
	svc        Service
	cookieName string
	secure     bool
}

// NewPageHandler creates a PageHandler. secure marks the session cookie
// Secure, which release deployments behind TLS need.
func NewPageHandler(svc Service, cookieName string, secure bool) *PageHandler {
	return &PageHandler{svc: svc, cookieName: cookieName, secure: secure}
}

// LoginPage renders the login form.
// GET /login
func (h *PageHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, loginTemplate, gin.H{
		"Next":      safeNext(c.Query("next")),
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// LoginHTMX checks the credentials and starts a browser session.
// POST /login
func (h *PageHandler) LoginHTMX(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	next := safeNext(c.PostForm("next"))

	resp, err := h.svc.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		msg := "Login failed, please try again"
		if domain.IsUnauthorized(err) {
			msg = "Invalid email or password"
		} else {
			slog.Error("login failed", "error", err)
		}
		c.HTML(http.StatusOK, loginTemplate, gin.H{
			"Email":     email,
			"Next":      next,
			"Error":     msg,
			"CSRFToken": middleware.GetCSRFToken(c),
		})
		return
	}

	maxAge := int(time.Until(time.Unix(resp.ExpiresAt, 0)).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, resp.Token, maxAge, "/", "", h.secure, true)

	redirect(c, next)
}

// Logout ends the browser session and revokes its token.
// POST /logout
func (h *PageHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookieName); err == nil && token != "" {
		if err := h.svc.Logout(token); err != nil {
			slog.Debug("logout with an unusable session token", "error", err)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	redirect(c, "/login")
}

func redirect(c *gin.Context, to string) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Redirect", to)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, to)
}

// safeNext only allows same-site paths as the post-login destination.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return homePath
	}
	return next
}

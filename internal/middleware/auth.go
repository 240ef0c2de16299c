package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

const (
	identityContextKey   = "identity"
	tokenContextKey      = "session_token"
	authorizerContextKey = "authorizer"
	publicContextKey     = "public_route"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uint
	Email  string
	Role   domain.Role
}

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Authorizer decides whether a role may call method on path.
type Authorizer interface {
	Allowed(role domain.Role, path, method string) bool
}

// AuthConfig configures Authenticate.
type AuthConfig struct {
	// CookieName carries the token for browser sessions.
	CookieName string
	// PublicPaths are path prefixes that need no session.
	PublicPaths []string
	// LoginPath, when set, is where unauthenticated page requests are sent.
	// Without it a 401 JSON envelope is returned.
	LoginPath string
}

// Authenticate resolves the caller from a Bearer token or the session
// cookie and stores it in the gin.Context.
func Authenticate(v TokenVerifier, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path, cfg.PublicPaths) {
			c.Set(publicContextKey, true)
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" && cfg.CookieName != "" {
			token, _ = c.Cookie(cfg.CookieName)
		}
		if token == "" {
			unauthenticated(c, cfg.LoginPath)
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			unauthenticated(c, cfg.LoginPath)
			return
		}
		c.Set(identityContextKey, id)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// Authorize rejects callers whose role may not call the route. It must run
// after Authenticate.
func Authorize(a Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(authorizerContextKey, a)
		if c.GetBool(publicContextKey) {
			c.Next()
			return
		}

		id, ok := CurrentIdentity(c)
		if !ok || !a.Allowed(id.Role, c.Request.URL.Path, c.Request.Method) {
			forbidden(c)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, if any.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentToken returns the session token Authenticate accepted, or "".
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

// Can reports whether the current caller may call method on path. Without
// an Authorizer in the chain everything is allowed.
func Can(c *gin.Context, method, path string) bool {
	v, ok := c.Get(authorizerContextKey)
	if !ok {
		return true
	}
	a, ok := v.(Authorizer)
	if !ok {
		return true
	}
	id, ok := CurrentIdentity(c)
	if !ok {
		return false
	}
	return a.Allowed(id.Role, path, method)
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && (path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/")) {
			return true
		}
	}
	return false
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthenticated(c *gin.Context, loginPath string) {
	if loginPath == "" {
		pkg.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}

	target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	if pkg.IsHTMX(c) {
		c.Header("HX-Redirect", target)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}

func forbidden(c *gin.Context) {
	pkg.Abort(c, http.StatusForbidden, "you do not have permission to perform this action")
}

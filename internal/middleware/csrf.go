package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/pkg"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// csrfSigner issues and checks double-submit tokens of the form
// hex(nonce) "." base64url(HMAC-SHA256(secret, hex(nonce))).
type csrfSigner struct {
	key []byte
}

func (s csrfSigner) issue() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := hex.EncodeToString(nonce)
	return n + "." + s.sign(n), nil
}

func (s csrfSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s csrfSigner) valid(token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(nonce)))
}

// CSRF protects the admin pages with a signed double-submit cookie.
//
// Safe requests get a token cookie when they lack a valid one, and the
// token is exposed to templates under "CSRFToken". Unsafe requests must
// echo the cookie in the X-CSRF-Token header, which htmx sends on every
// request, or in the _csrf_token form field used by plain forms such as
// the login page. The header is checked first so import uploads are not
// parsed twice.
//
// Rejections follow the caller: htmx gets a toast, API paths a JSON
// envelope, and browsers the 403 page.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			pkg.Fail(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}
	signer := csrfSigner{key: []byte(secret)}
	secure := gin.Mode() == gin.ReleaseMode

	return func(c *gin.Context) {
		cookie, _ := c.Cookie(csrfCookieName)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			if !signer.valid(cookie) {
				token, err := signer.issue()
				if err != nil {
					c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
						Code:    http.StatusInternalServerError,
						Message: "failed to issue csrf token",
					})
					return
				}
				http.SetCookie(c.Writer, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
				cookie = token
			}
			c.Set(csrfContextKey, cookie)
			c.Next()
			return
		}

		if cookie == "" {
			pkg.Abort(c, http.StatusForbidden, "Your session has no form token, reload the page")
			return
		}
		sent := c.GetHeader(csrfHeaderName)
		if sent == "" {
			sent = c.PostForm(csrfFormField)
		}
		if sent == "" || !signer.valid(cookie) || !hmac.Equal([]byte(sent), []byte(cookie)) {
			pkg.Abort(c, http.StatusForbidden, "This form has expired, reload the page and try again")
			return
		}
		c.Set(csrfContextKey, cookie)
		c.Next()
	}
}

// GetCSRFToken returns the token CSRF stored for templates, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

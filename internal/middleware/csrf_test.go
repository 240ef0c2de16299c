package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testCSRFSecret = "csrf-secret-for-tests-0123456789"

func csrfRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(CSRF(secret))
	r.GET("/admin/press-packs", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	r.POST("/login", func(c *gin.Context) {
		c.String(http.StatusOK, "posted")
	})
	r.POST("/admin/press-packs/import", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, fh.Filename)
	})
	r.DELETE("/admin/press-packs/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

// issuedToken performs a GET and returns the cookie token it set.
func issuedToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/press-packs", nil))
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			if c.Value != w.Body.String() {
				t.Fatalf("cookie %q differs from context token %q", c.Value, w.Body.String())
			}
			return c.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func TestCSRF_GetIssuesSignedCookie(t *testing.T) {
	r := csrfRouter(testCSRFSecret)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/press-packs", nil))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.HttpOnly {
		t.Error("token cookie must stay readable")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", c.SameSite)
	}
	if !(csrfSigner{key: []byte(testCSRFSecret)}).valid(c.Value) {
		t.Errorf("issued token %q does not verify", c.Value)
	}
}

func TestCSRF_GetKeepsValidCookie(t *testing.T) {
	r := csrfRouter(testCSRFSecret)
	token := issuedToken(t, r)

	req := httptest.NewRequest(http.MethodGet, "/admin/press-packs", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Error("a valid cookie was replaced")
	}
	if w.Body.String() != token {
		t.Errorf("context token = %q, want %q", w.Body.String(), token)
	}
}

func TestCSRF_GetReplacesForeignCookie(t *testing.T) {
	foreign := issuedToken(t, csrfRouter("another-secret-entirely-0123456789"))
	r := csrfRouter(testCSRFSecret)

	req := httptest.NewRequest(http.MethodGet, "/admin/press-packs", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: foreign})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() == foreign {
		t.Error("token signed with another secret was accepted")
	}
}

func TestCSRF_UnsafeRequests(t *testing.T) {
	r := csrfRouter(testCSRFSecret)
	token := issuedToken(t, r)
	other := issuedToken(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		cookie string
		header string
		field  string
		want   int
	}{
		{"header matches", http.MethodDelete, "/admin/press-packs/1", token, token, "", http.StatusNoContent},
		{"form field matches", http.MethodPost, "/login", token, "", token, http.StatusOK},
		{"no cookie", http.MethodPost, "/login", "", token, "", http.StatusForbidden},
		{"nothing sent", http.MethodPost, "/login", token, "", "", http.StatusForbidden},
		{"different valid token", http.MethodDelete, "/admin/press-packs/1", token, other, "", http.StatusForbidden},
		{"forged pair", http.MethodPost, "/login", "abc.def", "abc.def", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.field != "" {
				body = strings.NewReader(url.Values{csrfFormField: {tt.field}}.Encode())
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.field != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCSRF_MultipartImportWithHeader(t *testing.T) {
	r := csrfRouter(testCSRFSecret)
	token := issuedToken(t, r)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "packs.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("title\nGulf Launch\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/press-packs/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(csrfHeaderName, token)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "packs.csv" {
		t.Errorf("status %d body %q, want the upload to reach the handler", w.Code, w.Body.String())
	}
}

func TestCSRF_RejectionFormats(t *testing.T) {
	r := csrfRouter(testCSRFSecret)

	t.Run("htmx gets a toast", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/press-packs/1", nil)
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		if !strings.Contains(w.Header().Get("HX-Trigger"), "showToast") {
			t.Errorf("HX-Trigger = %q, want a toast", w.Header().Get("HX-Trigger"))
		}
		if w.Header().Get("HX-Reswap") != "none" {
			t.Error("expected HX-Reswap none")
		}
	})

	t.Run("non-browser gets json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"code":403`) {
			t.Errorf("body = %q, want the JSON envelope", w.Body.String())
		}
	})

	t.Run("browser gets the error page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		// no renderer is loaded here, so the plain-text fallback is used
		if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "403") {
			t.Errorf("status %d body %q", w.Code, w.Body.String())
		}
	})
}

func TestCSRF_EmptySecret(t *testing.T) {
	w := httptest.NewRecorder()
	csrfRouter("  ").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/press-packs", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestCSRFSigner_Valid(t *testing.T) {
	s := csrfSigner{key: []byte(testCSRFSecret)}
	token, err := s.issue()
	if err != nil {
		t.Fatal(err)
	}
	nonce, _, _ := strings.Cut(token, ".")

	for _, tt := range []struct {
		token string
		want  bool
	}{
		{token, true},
		{"", false},
		{"nodot", false},
		{nonce + ".", false},
		{"." + s.sign(nonce), false},
		{nonce + "." + s.sign(nonce+"x"), false},
	} {
		if got := s.valid(tt.token); got != tt.want {
			t.Errorf("valid(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestGetCSRFToken_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetCSRFToken(c); got != "" {
		t.Errorf("GetCSRFToken() = %q, want empty", got)
	}
}

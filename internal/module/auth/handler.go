package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/middleware"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

// AuthHandler serves the JSON session endpoints under /api/v1/auth.
type AuthHandler struct {
	svc Service
}

func NewHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, session)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, newUserInfo(u))
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	u, err := h.svc.Me(c.Request.Context(), id.UserID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, newUserInfo(u))
}

// Logout handles POST /api/v1/auth/logout. The token used for the request
// is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.CurrentToken(c)
	if token == "" {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	if err := h.svc.Logout(token); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

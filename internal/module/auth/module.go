package auth

import "github.com/gin-gonic/gin"

// AuthModule mounts the session API and, when a PageHandler is given, the
// login form.
type AuthModule struct {
	api   *AuthHandler
	pages *PageHandler
}

// NewModule panics if h is nil.
func NewModule(h *AuthHandler, ph *PageHandler) *AuthModule {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &AuthModule{api: h, pages: ph}
}

func (m *AuthModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	g := api.Group("/auth")
	g.POST("/login", m.api.Login)
	g.POST("/register", m.api.Register)
	g.GET("/me", m.api.Me)
	g.POST("/logout", m.api.Logout)

	if m.pages != nil && pages != nil {
		pages.GET("/login", m.pages.LoginPage)
		pages.POST("/login", m.pages.LoginHTMX)
		pages.POST("/logout", m.pages.Logout)
	}
}

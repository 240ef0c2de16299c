package resource

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/domain"
)

func registeredRoutes(r *gin.Engine) map[string]bool {
	out := map[string]bool{}
	for _, ri := range r.Routes() {
		out[ri.Method+":"+ri.Path] = true
	}
	return out
}

func TestModuleRegisterRoutes_Moderated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(catalog.Websites, setupTestDB(t), Options{}).RegisterRoutes(r.Group("/api/v1"), r.Group("/"))

	routes := registeredRoutes(r)
	for _, key := range []string{
		"GET:/api/v1/websites",
		"POST:/api/v1/websites",
		"GET:/api/v1/websites/export",
		"GET:/api/v1/websites/template",
		"POST:/api/v1/websites/bulk-upload",
		"GET:/api/v1/websites/:id",
		"PUT:/api/v1/websites/:id",
		"DELETE:/api/v1/websites/:id",
		"PATCH:/api/v1/websites/:id/status",
		"POST:/api/v1/websites/status",
		"POST:/api/v1/public/websites",
		"GET:/admin/websites",
		"GET:/admin/websites/new",
		"GET:/admin/websites/:id/edit",
		"POST:/admin/websites",
		"PUT:/admin/websites/:id",
		"DELETE:/admin/websites/:id",
		"PATCH:/admin/websites/:id/status",
	} {
		if !routes[key] {
			t.Errorf("expected route %s to be registered", key)
		}
	}
}

func TestModuleRegisterRoutes_Plain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(catalog.PressPacks, setupTestDB(t), Options{}).RegisterRoutes(r.Group("/api/v1"), r.Group("/"))

	routes := registeredRoutes(r)
	for _, key := range []string{
		"PATCH:/api/v1/press-packs/:id/status",
		"POST:/api/v1/press-packs/status",
		"POST:/api/v1/public/press-packs",
		"PATCH:/admin/press-packs/:id/status",
	} {
		if routes[key] {
			t.Errorf("route %s should not be registered", key)
		}
	}
	if !routes[http.MethodGet+":/admin/press-packs"] {
		t.Error("expected the list page route")
	}
}

func TestNewModule_Panics(t *testing.T) {
	cases := map[string]func(){
		"nil definition": func() { NewModule[domain.PressPack](nil, setupTestDB(t), Options{}) },
		"nil db":         func() { NewModule(catalog.PressPacks, nil, Options{}) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

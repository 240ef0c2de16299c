package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/middleware"
	"github.com/simp-lee/pressdesk/internal/module/resource"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

const healthPingTimeout = time.Second

// Summarizer reports the dashboard counts of one resource.
type Summarizer interface {
	Summary(ctx context.Context) (resource.Summary, error)
}

// UploadRoute serves stored images from Dir under URL.
type UploadRoute struct {
	URL string
	Dir string
}

// RouteDeps is everything RegisterRoutes wires.
type RouteDeps struct {
	Modules    []Module
	Dashboard  []Summarizer
	DB         *gorm.DB
	CSRFSecret string
	Uploads    UploadRoute

	// Web holds the static/ directory served under /static. CacheAssets
	// marks those responses cacheable for a day.
	Web         fs.FS
	CacheAssets bool

	// APIMiddleware and PageMiddleware run after the group defaults,
	// typically authentication and authorization.
	APIMiddleware  []gin.HandlerFunc
	PageMiddleware []gin.HandlerFunc
}

// RegisterRoutes mounts the JSON API under /api/v1 and the CSRF-protected
// admin pages under /, then lets every module add its own routes.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	switch {
	case r == nil:
		return errors.New("router is nil")
	case deps == nil:
		return errors.New("route dependencies are nil")
	case len(deps.Modules) == 0:
		return errors.New("at least one module is required")
	case strings.TrimSpace(deps.CSRFSecret) == "":
		return errors.New("csrf secret is required")
	}

	if deps.Web != nil {
		assets, err := staticHandler(deps.Web, deps.CacheAssets)
		if err != nil {
			return fmt.Errorf("static assets: %w", err)
		}
		r.GET("/static/*filepath", assets)
	}
	if deps.Uploads.URL != "" && deps.Uploads.Dir != "" {
		r.Static(deps.Uploads.URL, deps.Uploads.Dir)
	}
	r.GET("/health", healthHandler(deps.DB))

	api := r.Group("/api/v1", deps.APIMiddleware...)
	api.GET("/resources", resourcesHandler())

	pages := r.Group("/", middleware.CSRF(deps.CSRFSecret))
	pages.Use(deps.PageMiddleware...)
	pages.GET("/", homeHandler(deps.Dashboard))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(func(c *gin.Context) {
		pkg.Abort(c, http.StatusNotFound, "not found")
	})
	return nil
}

func resourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pkg.Success(c, catalog.All())
	}
}

// homeHandler renders the dashboard: one tile per resource the caller may
// open.
func homeHandler(dashboard []Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tiles := make([]resource.Summary, 0, len(dashboard))
		for _, d := range dashboard {
			sum, err := d.Summary(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "dashboard summary failed", slog.Any("error", err))
				pkg.Abort(c, http.StatusInternalServerError, "internal server error")
				return
			}
			if middleware.Can(c, http.MethodGet, "/admin/"+sum.Name) {
				tiles = append(tiles, sum)
			}
		}

		data := gin.H{
			"CSRFToken": middleware.GetCSRFToken(c),
			"Tiles":     tiles,
		}
		if id, ok := middleware.CurrentIdentity(c); ok {
			data["Identity"] = id
		}
		c.HTML(http.StatusOK, "home.html", data)
	}
}

// healthHandler answers 200 while the database answers a ping and 503
// otherwise. The ping is bounded by the request context.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code, database := "ok", http.StatusOK, "ok"
		if err := pingDatabase(c.Request.Context(), db); err != nil {
			slog.WarnContext(c.Request.Context(), "health check failed", slog.Any("error", err))
			status, code, database = "degraded", http.StatusServiceUnavailable, "error"
		}
		c.JSON(code, gin.H{
			"status":     status,
			"components": gin.H{"database": database},
		})
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("no database configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// staticHandler serves web/static. Release builds read it from the binary,
// so the files only change with a deploy and can be cached.
func staticHandler(web fs.FS, cache bool) (gin.HandlerFunc, error) {
	sub, err := fs.Sub(web, "static")
	if err != nil {
		return nil, err
	}
	files := http.StripPrefix("/static", http.FileServer(http.FS(sub)))
	return func(c *gin.Context) {
		if cache {
			c.Header("Cache-Control", "public, max-age=86400")
		}
		files.ServeHTTP(c.Writer, c.Request)
	}, nil
}

package resource

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/storage"
)

// Options configures the screens and API of a resource module.
type Options struct {
	// DefaultPageSize replaces the resource's own page size when positive.
	DefaultPageSize int
	MaxPageSize     int
	SearchDebounce  time.Duration
	Store           storage.Store
	Logger          *slog.Logger
}

// Module implements the app.Module interface for one catalog resource.
type Module[T any] struct {
	def         *catalog.Definition[T]
	svc         *Service[T]
	handler     *Handler[T]
	pageHandler *PageHandler[T]
}

// NewModule wires the repository, service and handlers for def.
// Panics if def or db is nil.
func NewModule[T any](def *catalog.Definition[T], db *gorm.DB, opts Options) *Module[T] {
	if def == nil {
		panic("resource.NewModule: definition must not be nil")
	}
	if db == nil {
		panic("resource.NewModule: db must not be nil")
	}
	svc := NewService(def, NewRepository[T](db), opts.Store, opts.Logger)
	svc.pageSize = opts.DefaultPageSize
	return &Module[T]{
		def:         def,
		svc:         svc,
		handler:     NewHandler(svc, opts.MaxPageSize),
		pageHandler: NewPageHandler(svc, opts.MaxPageSize, opts.SearchDebounce),
	}
}

// Service returns the module's service.
func (m *Module[T]) Service() *Service[T] { return m.svc }

// Summary reports the dashboard counts of the resource.
func (m *Module[T]) Summary(ctx context.Context) (Summary, error) { return m.svc.Summary(ctx) }

// RegisterRoutes registers the resource API and admin page routes.
func (m *Module[T]) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	name := m.def.Name

	// API routes
	r := api.Group("/" + name)
	r.GET("", m.handler.List)
	r.POST("", m.handler.Create)
	r.GET("/export", m.handler.Export)
	r.GET("/template", m.handler.Template)
	r.POST("/bulk-upload", m.handler.BulkUpload)
	r.GET("/:id", m.handler.Get)
	r.PUT("/:id", m.handler.Update)
	r.DELETE("/:id", m.handler.Delete)
	if m.def.Moderated() {
		r.PATCH("/:id/status", m.handler.SetStatus)
		r.POST("/status", m.handler.BulkStatus)
	}
	if m.def.Public {
		api.POST("/public/"+name, m.handler.Submit)
	}

	// Page routes
	p := pages.Group("/admin/" + name)
	p.GET("", m.pageHandler.ListPage)
	p.GET("/new", m.pageHandler.NewPage)
	p.GET("/:id/edit", m.pageHandler.EditPage)
	p.POST("", m.pageHandler.CreateHTMX)
	p.PUT("/:id", m.pageHandler.UpdateHTMX)
	p.DELETE("/:id", m.pageHandler.DeleteHTMX)
	if m.def.Moderated() {
		p.PATCH("/:id/status", m.pageHandler.StatusHTMX)
	}
}

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/config"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/middleware"
	"github.com/simp-lee/pressdesk/internal/module/auth"
	"github.com/simp-lee/pressdesk/internal/module/resource"
	"github.com/simp-lee/pressdesk/internal/module/user"
	"github.com/simp-lee/pressdesk/internal/rbac"
	"github.com/simp-lee/pressdesk/internal/storage"
	"github.com/simp-lee/pressdesk/web"
)

const (
	defaultServerTimeout = 30 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// App is the admin server together with the resources it owns.
type App struct {
	engine   *gin.Engine
	db       *gorm.DB
	logger   *logger.Logger
	cfg      *config.Config
	tokens   *auth.Tokens
	enforcer *rbac.Enforcer
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = signal.NotifyContext

// Models lists every table the application owns.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.PressPack{},
		&domain.WebsiteSubmission{},
		&domain.PowerlistNomination{},
		&domain.RealEstateProfessional{},
		&domain.PaparazziCreation{},
	}
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	return db.AutoMigrate(Models()...)
}

// New builds the server described by cfg. Whatever was opened before a
// failing step is closed again.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	a := &App{cfg: cfg}
	if err := a.setup(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup() error {
	cfg := a.cfg
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("invalid server.mode %q", cfg.Server.Mode)
	}
	debug := cfg.Server.Mode == gin.DebugMode

	var err error
	if a.logger, err = config.SetupLogger(&cfg.Log); err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	log := a.logger.Logger
	if debug && cfg.Server.Host == "0.0.0.0" {
		log.Warn("debug mode is listening on every interface")
	}

	if a.db, err = config.SetupDatabase(&cfg.Database, log); err != nil {
		return fmt.Errorf("setup database: %w", err)
	}
	// Release deployments migrate with the migrate command.
	if debug {
		if err := Migrate(a.db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
		if _, err := user.SeedAdmin(context.Background(), user.NewUserRepository(a.db), cfg.Auth.SeedAdmin, log); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)
	a.engine = gin.New()
	a.engine.Use(
		middleware.Recovery(log),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{AcceptClient: true}),
		middleware.Logger(log),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)),
	)

	webFS := fs.FS(web.EmbeddedFS)
	if debug {
		if webFS, err = sourceWebFS(); err != nil {
			return err
		}
	}
	renderer, err := NewTemplateRenderer(webFS, debug)
	if err != nil {
		return fmt.Errorf("setup template renderer: %w", err)
	}
	a.engine.HTMLRender = renderer

	csrfSecret, err := resolveCSRFSecret(cfg.Server.Mode, cfg.Server.CSRFSecret)
	if err != nil {
		return err
	}
	if csrfSecret != cfg.Server.CSRFSecret {
		log.Warn("no csrf_secret configured, using a random one until restart")
	}

	store, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.BaseURL, cfg.Upload.MaxSizeMB)
	if err != nil {
		return fmt.Errorf("setup upload storage: %w", err)
	}

	deps := &RouteDeps{
		DB:          a.db,
		CSRFSecret:  csrfSecret,
		Uploads:     UploadRoute{URL: cfg.Upload.BaseURL, Dir: cfg.Upload.Dir},
		Web:         webFS,
		CacheAssets: cfg.Server.Mode == gin.ReleaseMode,
	}
	for _, m := range resourceModules(a.db, resource.Options{
		DefaultPageSize: cfg.View.DefaultPageSize,
		MaxPageSize:     cfg.View.MaxPageSize,
		SearchDebounce:  cfg.View.SearchDebounce,
		Store:           store,
		Logger:          log,
	}) {
		deps.Modules = append(deps.Modules, m)
		deps.Dashboard = append(deps.Dashboard, m)
	}

	if cfg.Auth.Enabled {
		if err := a.wireAuth(deps); err != nil {
			return err
		}
	} else {
		log.Warn("authentication is disabled, every screen is open")
	}

	if err := RegisterRoutes(a.engine, deps); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}
	return nil
}

// wireAuth adds the login module and the session and role checks to deps.
func (a *App) wireAuth(deps *RouteDeps) error {
	cfg := a.cfg
	users := user.NewUserRepository(a.db)
	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, users)
	if err != nil {
		return err
	}
	a.tokens = tokens

	svc := auth.NewService(a.tokens, users)
	deps.Modules = append(deps.Modules, auth.NewModule(
		auth.NewHandler(svc),
		auth.NewPageHandler(svc, cfg.Auth.CookieName, cfg.Server.Mode == gin.ReleaseMode),
	))

	deps.APIMiddleware = append(deps.APIMiddleware, middleware.Authenticate(a.tokens, middleware.AuthConfig{
		CookieName:  cfg.Auth.CookieName,
		PublicPaths: cfg.Auth.PublicPaths,
	}))
	deps.PageMiddleware = append(deps.PageMiddleware, middleware.Authenticate(a.tokens, middleware.AuthConfig{
		CookieName:  cfg.Auth.CookieName,
		PublicPaths: []string{"/login", "/logout"},
		LoginPath:   "/login",
	}))

	if !cfg.Auth.RBAC.Enabled {
		return nil
	}
	enforcer, err := rbac.New(cfg.Auth.RBAC.PolicyPath)
	if err != nil {
		return fmt.Errorf("setup rbac: %w", err)
	}
	a.enforcer = enforcer
	deps.APIMiddleware = append(deps.APIMiddleware, middleware.Authorize(enforcer))
	deps.PageMiddleware = append(deps.PageMiddleware, middleware.Authorize(enforcer))
	return nil
}

// resourceModules builds one module per managed resource, in menu order.
func resourceModules(db *gorm.DB, opts resource.Options) []resourceModule {
	return []resourceModule{
		resource.NewModule(catalog.PressPacks, db, opts),
		resource.NewModule(catalog.Websites, db, opts),
		resource.NewModule(catalog.PowerlistNominations, db, opts),
		resource.NewModule(catalog.RealEstateProfessionals, db, opts),
		resource.NewModule(catalog.PaparazziCreations, db, opts),
		resource.NewModule(catalog.Users, db, opts),
	}
}

type resourceModule interface {
	Module
	Summarizer
}

// placeholderSecrets are the sample values shipped in configs/.
var placeholderSecrets = map[string]bool{
	"":                                   true,
	"change-me-csrf-secret-32-bytes-min": true,
	"change-me-to-a-random-secret":       true,
	"change-me-in-env":                   true,
}

// resolveCSRFSecret returns the configured secret. Release mode demands a
// strong one; other modes fall back to a random secret.
func resolveCSRFSecret(mode, secret string) (string, error) {
	if placeholderSecrets[strings.ToLower(strings.TrimSpace(secret))] {
		if mode == gin.ReleaseMode {
			return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate csrf secret: %w", err)
		}
		return hex.EncodeToString(b), nil
	}

	if mode != gin.ReleaseMode {
		return secret, nil
	}
	if len(secret) < 32 {
		return "", errors.New("csrf_secret must be at least 32 characters in release mode")
	}
	if config.CountSecretClasses(secret) < 3 {
		return "", errors.New("csrf_secret must include at least 3 character classes in release mode")
	}
	return secret, nil
}

// resolveCORSConfig overlays cfg on the middleware defaults. Without an
// allowlist, release mode refuses cross-origin requests.
func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	out.AllowCredentials = cfg.AllowCredentials
	if len(cfg.AllowMethods) > 0 {
		out.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		out.AllowHeaders = cfg.AllowHeaders
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = cfg.MaxAge
	}
	switch {
	case len(cfg.AllowOrigins) > 0:
		out.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		out.AllowOrigins = []string{}
	}
	return out
}

// sourceWebFS finds the web/ tree on disk so debug builds pick up template
// and asset edits: next to the sources first, then next to the binary.
func sourceWebFS() (fs.FS, error) {
	var dirs []string
	if _, file, _, ok := runtime.Caller(0); ok {
		dirs = append(dirs, filepath.Join(filepath.Dir(file), "..", "..", "web"))
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "web"))
	}
	for _, dir := range dirs {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(filepath.Clean(dir)), nil
		}
	}
	return nil, errors.New("web directory not found")
}

func (a *App) serverTimeout() time.Duration {
	if d := a.cfg.Server.Timeout; d > 0 {
		return d
	}
	return defaultServerTimeout
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}

// close stops the token service, releases the database and flushes the
// logger.
func (a *App) close() {
	if a.tokens != nil {
		a.tokens.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.log().Error("database close error", slog.Any("error", err))
			} else {
				a.log().Info("database connection closed")
			}
		}
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the database and the logger.
func (a *App) Run() error {
	switch {
	case a == nil:
		return errors.New("app is nil")
	case a.cfg == nil:
		return errors.New("app config is nil")
	case a.engine == nil:
		return errors.New("app engine is nil")
	}

	log := a.log()
	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	srv := newHTTPServer(addr, a.engine, a.serverTimeout())

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		served <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("server stopped")
	a.close()
	return runErr
}

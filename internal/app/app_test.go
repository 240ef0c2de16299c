package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/simp-lee/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/config"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/pkg"
)

// stubServer stands in for http.Server. ListenAndServe returns listenErr
// at once, or blocks until Shutdown when block is set.
type stubServer struct {
	listenErr error
	block     bool
	listening chan struct{}

	mu       sync.Mutex
	stopped  chan struct{}
	shutdown bool
}

func newStubServer(listenErr error, block bool) *stubServer {
	return &stubServer{listenErr: listenErr, block: block, listening: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *stubServer) ListenAndServe() error {
	close(s.listening)
	if s.listenErr != nil {
		return s.listenErr
	}
	if s.block {
		<-s.stopped
	}
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shutdown {
		s.shutdown = true
		close(s.stopped)
	}
	return nil
}

func (s *stubServer) wasShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// stubRunHooks swaps the server factory and the signal context for the
// duration of the test.
func stubRunHooks(t *testing.T, srv *stubServer, ctx context.Context, cancel context.CancelFunc) *time.Duration {
	t.Helper()
	origServer, origNotify := newHTTPServer, notifyContext
	t.Cleanup(func() { newHTTPServer, notifyContext = origServer, origNotify })

	var timeout time.Duration
	newHTTPServer = func(_ string, _ http.Handler, d time.Duration) httpServer {
		timeout = d
		return srv
	}
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return ctx, cancel
	}
	return &timeout
}

// testConfig returns a config backed by a fresh SQLite file.
func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			Mode:       mode,
			CSRFSecret: "Abcd1234!Abcd1234!Abcd1234!Abcd1234!",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "app.db")},
		},
		Log: config.LogConfig{Level: "warn", Format: "text"},
		View: config.ViewConfig{
			DefaultPageSize: 25,
			MaxPageSize:     100,
			SearchDebounce:  300 * time.Millisecond,
		},
		Upload: config.UploadConfig{
			Dir:       filepath.Join(dir, "uploads"),
			BaseURL:   "/uploads",
			MaxSizeMB: 1,
		},
	}
}

func enableAuth(cfg *config.Config, rbac bool) {
	cfg.Auth = config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret-key-must-be-at-least-32-chars-long!",
		TokenTTL:    24 * time.Hour,
		CookieName:  "pressdesk_token",
		PublicPaths: []string{"/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/public"},
		RBAC:        config.RBACConfig{Enabled: rbac},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func serve(a *App, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestResolveCORSConfig(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		cfg         config.CORSConfig
		wantOrigins string
		wantMethods string
		wantCreds   bool
		wantMaxAge  time.Duration
	}{
		{"debug allows any origin", gin.DebugMode, config.CORSConfig{}, "*", "", false, 24 * time.Hour},
		{"release without allowlist refuses", gin.ReleaseMode, config.CORSConfig{}, "", "", false, 24 * time.Hour},
		{
			"release allowlist", gin.ReleaseMode,
			config.CORSConfig{AllowOrigins: []string{"https://admin.pressdesk.io"}},
			"https://admin.pressdesk.io", "", false, 24 * time.Hour,
		},
		{
			"everything configured", gin.ReleaseMode,
			config.CORSConfig{
				AllowOrigins:     []string{"https://a.example", "https://b.example"},
				AllowMethods:     []string{"GET", "POST"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			},
			"https://a.example,https://b.example", "GET,POST", true, 12 * time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCORSConfig(tt.mode, tt.cfg)
			if o := strings.Join(got.AllowOrigins, ","); o != tt.wantOrigins {
				t.Errorf("AllowOrigins = %q, want %q", o, tt.wantOrigins)
			}
			if tt.wantMethods != "" && strings.Join(got.AllowMethods, ",") != tt.wantMethods {
				t.Errorf("AllowMethods = %v, want %s", got.AllowMethods, tt.wantMethods)
			}
			if got.AllowCredentials != tt.wantCreds || got.MaxAge != tt.wantMaxAge {
				t.Errorf("credentials %v max age %v", got.AllowCredentials, got.MaxAge)
			}
		})
	}
}

func TestResolveCSRFSecret(t *testing.T) {
	const strong = "Abcd1234!Abcd1234!Abcd1234!Abcd1234!"
	tests := []struct {
		mode, secret string
		wantErr      string
		want         string // "" means a generated secret
	}{
		{gin.ReleaseMode, "", "non-placeholder value", ""},
		{gin.ReleaseMode, " Change-Me-In-Env ", "non-placeholder value", ""},
		{gin.ReleaseMode, "Abc123!", "at least 32 characters", ""},
		{gin.ReleaseMode, strings.Repeat("a", 32), "3 character classes", ""},
		{gin.ReleaseMode, strong, "", strong},
		{gin.DebugMode, " ", "", ""},
		{gin.DebugMode, "change-me-to-a-random-secret", "", ""},
		{gin.TestMode, "short", "", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.secret, func(t *testing.T) {
			got, err := resolveCSRFSecret(tt.mode, tt.secret)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			switch {
			case tt.want == "" && len(got) != 64:
				t.Errorf("generated secret %q, want 64 hex chars", got)
			case tt.want != "" && got != tt.want:
				t.Errorf("secret = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown mode", func(c *config.Config) { c.Server.Mode = "staging" }, `invalid server.mode "staging"`},
		{"database driver", func(c *config.Config) { c.Database.Driver = "oracle" }, "setup database"},
		{"weak release csrf secret", func(c *config.Config) {
			c.Server.Mode = gin.ReleaseMode
			c.Server.CSRFSecret = strings.Repeat("a", 32)
		}, "character classes"},
		{"missing policy file", func(c *config.Config) {
			enableAuth(c, true)
			c.Auth.RBAC.PolicyPath = filepath.Join(t.TempDir(), "absent.csv")
		}, "setup rbac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, gin.TestMode)
			tt.mutate(cfg)
			a, err := New(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("New() error = %v, want %q", err, tt.want)
			}
			if a != nil {
				t.Error("New() returned an app alongside the error")
			}
		})
	}

	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestServerTimeout(t *testing.T) {
	a := newTestApp(t, testConfig(t, gin.TestMode))
	if got := a.serverTimeout(); got != defaultServerTimeout {
		t.Errorf("serverTimeout() = %v, want %v", got, defaultServerTimeout)
	}
	a.cfg.Server.Timeout = 45 * time.Second
	if got := a.serverTimeout(); got != 45*time.Second {
		t.Errorf("serverTimeout() = %v, want 45s", got)
	}
}

func TestNew_OpenAdminWithoutAuth(t *testing.T) {
	a := newTestApp(t, testConfig(t, gin.TestMode))
	if a.tokens != nil || a.enforcer != nil {
		t.Error("auth services built although auth is disabled")
	}
	if err := Migrate(a.db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	for _, path := range []string{
		"/api/v1/resources",
		"/api/v1/press-packs",
		"/api/v1/websites",
		"/api/v1/powerlist-nominations",
		"/api/v1/real-estate-professionals",
		"/api/v1/paparazzi-creations",
		"/api/v1/users",
	} {
		if w := serve(a, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Errorf("GET %s: %d %s", path, w.Code, w.Body.String())
		}
	}
	if w := serve(a, http.MethodGet, "/api/v1/auth/me", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("auth routes mounted without auth: %d", w.Code)
	}
}

func TestNew_AuthGuardsApiAndPages(t *testing.T) {
	cfg := testConfig(t, gin.TestMode)
	enableAuth(cfg, false)
	a := newTestApp(t, cfg)

	if a.tokens == nil || a.enforcer != nil {
		t.Fatalf("tokens %v enforcer %v", a.tokens, a.enforcer)
	}
	if w := serve(a, http.MethodGet, "/api/v1/websites", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous API call: %d", w.Code)
	}
	if w := serve(a, http.MethodPost, "/api/v1/auth/login", "{}", nil); w.Code == http.StatusUnauthorized {
		t.Error("login must stay public")
	}

	w := serve(a, http.MethodGet, "/admin/websites", "", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("anonymous page: %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next="+url.QueryEscape("/admin/websites") {
		t.Errorf("Location = %q", loc)
	}
}

func TestNew_RolesEnforced(t *testing.T) {
	cfg := testConfig(t, gin.DebugMode)
	enableAuth(cfg, true)
	cfg.Auth.SeedAdmin = config.SeedAdminConfig{Name: "Root", Email: "root@pressdesk.local", Password: "s3cret-pass"}
	a := newTestApp(t, cfg)

	if a.enforcer == nil {
		t.Fatal("enforcer missing with rbac enabled")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("viewer-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	viewer := domain.User{Name: "Vee", Email: "vee@pressdesk.local", Role: domain.RoleViewer, IsActive: true, PasswordHash: string(hash)}
	if err := a.db.Create(&viewer).Error; err != nil {
		t.Fatalf("create viewer: %v", err)
	}

	login := func(email, password string) map[string]string {
		t.Helper()
		w := serve(a, http.MethodPost, "/api/v1/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
		}
		var resp struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return map[string]string{"Authorization": "Bearer " + resp.Data.Token}
	}

	root := login("root@pressdesk.local", "s3cret-pass")
	vee := login("vee@pressdesk.local", "viewer-pass")
	tests := []struct {
		who    map[string]string
		method string
		path   string
		want   int
	}{
		{root, http.MethodGet, "/api/v1/users", http.StatusOK},
		{vee, http.MethodGet, "/api/v1/websites", http.StatusOK},
		{vee, http.MethodPost, "/api/v1/websites", http.StatusForbidden},
		{vee, http.MethodGet, "/api/v1/users", http.StatusForbidden},
	}
	for _, tt := range tests {
		if w := serve(a, tt.method, tt.path, "{}", tt.who); w.Code != tt.want {
			t.Errorf("%s %s as %s: %d, want %d", tt.method, tt.path, tt.who["Authorization"][:12], w.Code, tt.want)
		}
	}
	if w := serve(a, http.MethodPost, "/api/v1/auth/logout", "", vee); w.Code != http.StatusOK {
		t.Fatalf("viewer logout: %d %s", w.Code, w.Body.String())
	}
	if w := serve(a, http.MethodGet, "/api/v1/websites", "", vee); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token still accepted: %d", w.Code)
	}
	if w := serve(a, http.MethodGet, "/api/v1/websites", "", root); w.Code != http.StatusOK {
		t.Errorf("other sessions must survive a logout: %d", w.Code)
	}
}

func TestNew_DebugMigratesAndSeeds(t *testing.T) {
	cfg := testConfig(t, gin.DebugMode)
	cfg.Auth.SeedAdmin = config.SeedAdminConfig{Name: "Root", Email: "root@pressdesk.local", Password: "s3cret-pass"}
	a := newTestApp(t, cfg)

	for _, table := range []string{"users", "press_packs", "website_submissions", "powerlist_nominations", "real_estate_professionals", "paparazzi_creations"} {
		if !a.db.Migrator().HasTable(table) {
			t.Errorf("table %s missing after a debug start", table)
		}
	}
	var u domain.User
	if err := a.db.Where("email = ?", "root@pressdesk.local").First(&u).Error; err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	if u.Role != domain.RoleSuperAdmin {
		t.Errorf("seeded role = %s", u.Role)
	}
}

func TestNew_NoMigrationOutsideDebug(t *testing.T) {
	a := newTestApp(t, testConfig(t, gin.TestMode))
	if a.db.Migrator().HasTable("users") {
		t.Fatal("tables created outside debug mode")
	}
	if err := Migrate(nil); err == nil {
		t.Error("Migrate(nil) should fail")
	}
}

func TestNew_UnknownRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t, gin.TestMode))

	w := serve(a, http.MethodGet, "/api/v1/nope", "", nil)
	var resp pkg.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if w.Code != http.StatusNotFound || resp.Code != http.StatusNotFound || resp.Message != "not found" {
		t.Errorf("api 404 = %d %+v", w.Code, resp)
	}

	w = serve(a, http.MethodGet, "/admin/nope", "", map[string]string{"Accept": "text/html"})
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Back to dashboard") {
		t.Errorf("page 404 = %d", w.Code)
	}
}

func TestRun_ListenFailure(t *testing.T) {
	listenErr := errors.New("address already in use")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stubRunHooks(t, newStubServer(listenErr, false), ctx, cancel)

	a := &App{
		engine: gin.New(),
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}
	err := a.Run()
	if !errors.Is(err, listenErr) || !strings.Contains(err.Error(), "server error") {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_SignalShutsDown(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "run.db")), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}

	srv := newStubServer(nil, true)
	ctx, cancel := context.WithCancel(context.Background())
	timeout := stubRunHooks(t, srv, ctx, cancel)

	a := &App{
		engine: gin.New(),
		db:     db,
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Timeout: 10 * time.Second}},
	}
	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	select {
	case <-srv.listening:
	case <-time.After(2 * time.Second):
		t.Fatal("server never started")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the signal")
	}

	if !srv.wasShutdown() {
		t.Error("Shutdown not called")
	}
	if *timeout != 10*time.Second {
		t.Errorf("server timeout = %v, want 10s", *timeout)
	}
	if sqlDB.Ping() == nil {
		t.Error("database still open after Run")
	}
}

func TestRun_NilGuards(t *testing.T) {
	var nilApp *App
	for name, a := range map[string]*App{
		"nil app":   nilApp,
		"no config": {},
		"no engine": {cfg: &config.Config{}},
	} {
		if err := a.Run(); err == nil {
			t.Errorf("%s: Run() succeeded", name)
		}
	}
}

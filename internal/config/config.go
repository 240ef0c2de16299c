// Package config loads the pressdesk server settings from YAML and the
// environment, and builds the logger and database handle they describe.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. A double underscore separates
// levels: PRESSDESK__DATABASE__POOL__MAX_OPEN_CONNS sets
// database.pool.max_open_conns.
const EnvPrefix = "PRESSDESK__"

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	View     ViewConfig     `koanf:"view"`
	Upload   UploadConfig   `koanf:"upload"`
}

type ServerConfig struct {
	Host       string        `koanf:"host" validate:"required"`
	Port       int           `koanf:"port" validate:"min=1,max=65535"`
	Mode       string        `koanf:"mode" validate:"oneof=debug release test"`
	CSRFSecret string        `koanf:"csrf_secret"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0s"`
	CORS       CORSConfig    `koanf:"cors"`
}

// CORSConfig lists the origins allowed to drive the admin cross-origin.
type CORSConfig struct {
	AllowOrigins     []string      `koanf:"allow_origins"`
	AllowMethods     []string      `koanf:"allow_methods"`
	AllowHeaders     []string      `koanf:"allow_headers"`
	AllowCredentials bool          `koanf:"allow_credentials"`
	MaxAge           time.Duration `koanf:"max_age" validate:"gte=0s"`
}

type DatabaseConfig struct {
	Driver   string         `koanf:"driver" validate:"oneof=sqlite postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite" validate:"-"`
	Postgres PostgresConfig `koanf:"postgres" validate:"-"`
	Pool     PoolConfig     `koanf:"pool"`
}

type SQLiteConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type PostgresConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname" validate:"required"`
	SSLMode  string `koanf:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

type PoolConfig struct {
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=1"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gt=0s"`
}

// LogConfig selects the console format and the optional rotated log file.
type LogConfig struct {
	Level           string `koanf:"level" validate:"oneof=debug info warn error"`
	Format          string `koanf:"format" validate:"oneof=text json"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb" validate:"gte=0"`
	RetentionDays   int    `koanf:"retention_days" validate:"gte=0"`
	MaxBackups      int    `koanf:"max_backups" validate:"gte=0"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds session token and access control settings. Its fields
// are only checked when Enabled is set.
type AuthConfig struct {
	Enabled     bool            `koanf:"enabled"`
	JWTSecret   string          `koanf:"jwt_secret" validate:"required,min=32"`
	TokenTTL    time.Duration   `koanf:"token_ttl" validate:"gt=0s"`
	CookieName  string          `koanf:"cookie_name" validate:"required"`
	PublicPaths []string        `koanf:"public_paths" validate:"required,dive,startswith=/"`
	RBAC        RBACConfig      `koanf:"rbac"`
	SeedAdmin   SeedAdminConfig `koanf:"seed_admin" validate:"-"`
}

type RBACConfig struct {
	Enabled bool `koanf:"enabled"`
	// PolicyPath optionally points to a casbin CSV policy replacing the
	// built-in one.
	PolicyPath string `koanf:"policy_path" validate:"omitempty,file"`
}

// SeedAdminConfig describes the admin account `pressdesk seed` creates.
// An empty email disables seeding.
type SeedAdminConfig struct {
	Name     string `koanf:"name" validate:"required"`
	Email    string `koanf:"email" validate:"required,email"`
	Password string `koanf:"password" validate:"min=8"`
}

// ViewConfig tunes the list screens.
type ViewConfig struct {
	DefaultPageSize int           `koanf:"default_page_size" validate:"min=1,ltefield=MaxPageSize"`
	MaxPageSize     int           `koanf:"max_page_size" validate:"min=1,max=1000"`
	SearchDebounce  time.Duration `koanf:"search_debounce" validate:"gt=0s"`
}

// UploadConfig says where record images are stored and served from.
type UploadConfig struct {
	Dir       string `koanf:"dir" validate:"required"`
	BaseURL   string `koanf:"base_url" validate:"required,startswith=/"`
	MaxSizeMB int    `koanf:"max_size_mb" validate:"min=1,max=100"`
}

// requiredPublicPaths must stay reachable without a session when auth is on.
var requiredPublicPaths = []string{"/api/v1/auth/login", "/api/v1/auth/register"}

// defaults are loaded beneath the YAML file.
var defaults = map[string]any{
	"server.host":                     "0.0.0.0",
	"server.port":                     8080,
	"server.mode":                     gin.DebugMode,
	"server.timeout":                  "30s",
	"server.cors.max_age":             "12h",
	"database.driver":                 "sqlite",
	"database.sqlite.path":            "data/pressdesk.db",
	"database.postgres.port":          5432,
	"database.postgres.sslmode":       "disable",
	"database.pool.max_idle_conns":    10,
	"database.pool.max_open_conns":    100,
	"database.pool.conn_max_lifetime": "1h",
	"log.level":                       "info",
	"log.format":                      "text",
	"auth.token_ttl":                  "24h",
	"auth.cookie_name":                "pressdesk_token",
	"auth.seed_admin.name":            "Administrator",
	"view.default_page_size":          25,
	"view.max_page_size":              100,
	"view.search_debounce":            "300ms",
	"upload.dir":                      "data/uploads",
	"upload.base_url":                 "/uploads",
	"upload.max_size_mb":              5,
}

// Load reads the YAML file at path over the built-in defaults, applies
// PRESSDESK__ environment overrides and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate normalizes string settings, then checks every section that is
// in use and the rules that span sections.
func (c *Config) Validate() error {
	c.normalize()

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
	})

	sections := []struct {
		prefix string
		value  any
		active bool
	}{
		{"server", &c.Server, true},
		{"database", &c.Database, true},
		{"database.sqlite", &c.Database.SQLite, c.Database.Driver == "sqlite"},
		{"database.postgres", &c.Database.Postgres, c.Database.Driver == "postgres"},
		{"log", &c.Log, true},
		{"auth", &c.Auth, c.Auth.Enabled},
		{"auth.seed_admin", &c.Auth.SeedAdmin, c.Auth.SeedAdmin.Email != ""},
		{"view", &c.View, true},
		{"upload", &c.Upload, true},
	}
	for _, s := range sections {
		if !s.active {
			continue
		}
		if err := v.Struct(s.value); err != nil {
			return describe(s.prefix, err)
		}
	}
	return c.crossCheck()
}

func (c *Config) normalize() {
	trim := func(s ...*string) {
		for _, p := range s {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(&c.Server.Host, &c.Server.Mode, &c.Database.Driver, &c.Database.SQLite.Path,
		&c.Database.Postgres.Host, &c.Database.Postgres.User, &c.Database.Postgres.DBName,
		&c.Database.Postgres.SSLMode, &c.Auth.JWTSecret, &c.Auth.CookieName,
		&c.Auth.RBAC.PolicyPath, &c.Auth.SeedAdmin.Name, &c.Auth.SeedAdmin.Email,
		&c.Upload.Dir, &c.Upload.BaseURL)

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Upload.BaseURL != "/" {
		c.Upload.BaseURL = strings.TrimRight(c.Upload.BaseURL, "/")
	}

	seen := make(map[string]bool, len(c.Auth.PublicPaths))
	paths := c.Auth.PublicPaths[:0]
	for _, p := range c.Auth.PublicPaths {
		p = strings.TrimSpace(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	c.Auth.PublicPaths = paths
}

func (c *Config) crossCheck() error {
	release := c.Server.Mode == gin.ReleaseMode

	if release && c.Database.Driver == "postgres" {
		switch c.Database.Postgres.SSLMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q: release mode needs require, verify-ca or verify-full",
				c.Database.Postgres.SSLMode)
		}
	}

	if c.Auth.RBAC.Enabled && !c.Auth.Enabled {
		return errors.New("auth.rbac.enabled requires auth.enabled")
	}
	if !c.Auth.Enabled {
		return nil
	}
	for _, p := range requiredPublicPaths {
		if !contains(c.Auth.PublicPaths, p) {
			return fmt.Errorf("auth.public_paths must include %q", p)
		}
	}
	if release && CountSecretClasses(c.Auth.JWTSecret) < 3 {
		return errors.New("auth.jwt_secret must mix at least 3 of lowercase, uppercase, digits and symbols in release mode")
	}
	return nil
}

// describe turns the first validator failure into a message naming the
// config key.
func describe(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate %s: %w", prefix, err)
	}
	fe := verrs[0]

	// Namespace is "ServerConfig.port" or "AuthConfig.public_paths[1]".
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	key = prefix + "." + key

	var reason string
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		reason = "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min", "gte":
		reason = "must be at least " + fe.Param()
	case "max", "lte":
		reason = "must be at most " + fe.Param()
	case "gt":
		reason = "must be greater than " + strings.TrimSuffix(fe.Param(), "s")
	case "ltefield":
		reason = "must not exceed view.max_page_size"
	case "startswith":
		reason = "must start with " + fe.Param()
	case "email":
		reason = "must be an email address"
	case "file":
		reason = "file does not exist"
	default:
		reason = "failed " + fe.Tag()
	}
	if strings.HasSuffix(key, "password") || strings.HasSuffix(key, "secret") {
		return fmt.Errorf("invalid %s: %s", key, reason)
	}
	return fmt.Errorf("invalid %s %v: %s", key, quoted(fe.Value()), reason)
}

func quoted(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CountSecretClasses reports how many of lowercase, uppercase, digit and
// other characters appear in secret.
func CountSecretClasses(secret string) int {
	var seen [4]bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			seen[0] = true
		case unicode.IsUpper(r):
			seen[1] = true
		case unicode.IsDigit(r):
			seen[2] = true
		default:
			seen[3] = true
		}
	}
	n := 0
	for _, ok := range seen {
		if ok {
			n++
		}
	}
	return n
}

// Package client is the typed REST consumer of the admin API. It carries an
// injected Session and adapts each resource to the list screen and form
// modal used by the operator CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/pressdesk/internal/catalog"
)

const (
	apiPrefix       = "/api/v1"
	requestIDHeader = "X-Request-ID"
	defaultTimeout  = 30 * time.Second
)

// ErrNoSession is returned when a request needs credentials the session
// does not hold.
var ErrNoSession = errors.New("not logged in")

// FieldDetail is one per-field server validation message.
type FieldDetail struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Details []FieldDetail
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Details) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, msg)
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Path+" "+d.Msg)
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, msg, strings.Join(parts, "; "))
}

// Unauthenticated reports whether the server rejected the credentials.
func (e *APIError) Unauthenticated() bool { return e.Status == http.StatusUnauthorized }

// Forbidden reports whether the role may not perform the request.
func (e *APIError) Forbidden() bool { return e.Status == http.StatusForbidden }

// FieldErrors returns the validation messages keyed by field.
func (e *APIError) FieldErrors() map[string]string {
	if len(e.Details) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Details))
	for _, d := range e.Details {
		out[d.Path] = d.Msg
	}
	return out
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details []FieldDetail   `json:"details"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to one API server.
type Client struct {
	base    *url.URL
	session Session
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, session Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url: %q", baseURL)
	}
	if session == nil {
		session = &MemorySession{}
	}
	c := &Client{
		base:    u,
		session: session,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the injected session.
func (c *Client) Session() Session { return c.session }

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request is one API call. Exactly one of json and body may be set.
type request struct {
	method      string
	path        string
	query       url.Values
	json        any
	body        io.Reader
	contentType string
	anonymous   bool
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader
	if r.json != nil {
		b, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		r.contentType = "application/json"
	} else if r.body != nil {
		body = r.body
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous {
		creds, ok := c.session.Credentials()
		if !ok {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: ErrNoSession.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	c.logger.Debug("api request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := decodeError(resp)
	if apiErr.Unauthenticated() && !r.anonymous {
		if err := c.session.Clear(); err != nil {
			c.logger.Warn("failed to clear session", "error", err)
		}
	}
	return nil, apiErr
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env envelope
	if err := json.Unmarshal(b, &env); err == nil {
		apiErr.Message = env.Message
		apiErr.Details = env.Details
	} else if text := strings.TrimSpace(string(b)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

// call sends r and decodes the envelope data into out when out is non-nil.
func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Account is the signed-in user.
type Account struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login exchanges email and password for a token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	var out struct {
		Token     string  `json:"token"`
		ExpiresAt int64   `json:"expires_at"`
		User      Account `json:"user"`
	}
	err := c.call(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		json:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &out)
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{
		Token: out.Token,
		Email: out.User.Email,
		Role:  out.User.Role,
	}
	if out.ExpiresAt > 0 {
		creds.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	}
	if err := c.session.Save(creds); err != nil {
		return Credentials{}, err
	}
	c.logger.Info("logged in", "email", creds.Email, "role", creds.Role)
	return creds, nil
}

// Logout revokes the session token on the server and forgets the stored
// credentials. The local session is cleared even when the server cannot be
// reached.
func (c *Client) Logout(ctx context.Context) error {
	if _, ok := c.session.Credentials(); ok {
		err := c.call(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
		if err != nil {
			c.logger.Warn("server logout failed", "error", err)
		}
	}
	return c.session.Clear()
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context) (Account, error) {
	var a Account
	err := c.call(ctx, request{method: http.MethodGet, path: "/auth/me"}, &a)
	return a, err
}

// Resources lists the resources the server manages.
func (c *Client) Resources(ctx context.Context) ([]catalog.Meta, error) {
	var out []catalog.Meta
	err := c.call(ctx, request{method: http.MethodGet, path: "/resources"}, &out)
	return out, err
}

package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is an authenticated API session.
type Credentials struct {
	Token     string    `yaml:"token"`
	Email     string    `yaml:"email"`
	Role      string    `yaml:"role,omitempty"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// Valid reports whether c holds a token that has not expired at now.
func (c Credentials) Valid(now time.Time) bool {
	if strings.TrimSpace(c.Token) == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// Session stores the caller's credentials. The client reads the token for
// every request and clears the session when the server rejects it.
type Session interface {
	Credentials() (Credentials, bool)
	Save(Credentials) error
	Clear() error
}

// FileSession persists credentials as YAML.
type FileSession struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	creds Credentials
}

// OpenFileSession restores the session stored at path. A missing file is an
// empty session.
func OpenFileSession(path string) (*FileSession, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("session path is empty")
	}
	s := &FileSession{path: path, now: time.Now}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(b, &s.creds); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

// DefaultSessionPath returns ~/.config/pressdesk/session.yaml.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pressdesk", "session.yaml")
}

// Path returns the backing file.
func (s *FileSession) Path() string { return s.path }

// Credentials returns the stored credentials when they are still valid.
func (s *FileSession) Credentials() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.creds.Valid(s.now()) {
		return Credentials{}, false
	}
	return s.creds, true
}

// Save replaces the stored credentials.
func (s *FileSession) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.creds = c
	return nil
}

// Clear forgets the credentials and removes the file.
func (s *FileSession) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// MemorySession keeps credentials in memory only.
type MemorySession struct {
	mu    sync.Mutex
	creds Credentials
}

func (s *MemorySession) Credentials() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.creds.Valid(time.Now()) {
		return Credentials{}, false
	}
	return s.creds, true
}

func (s *MemorySession) Save(c Credentials) error {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return nil
}

func (s *MemorySession) Clear() error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()
	return nil
}

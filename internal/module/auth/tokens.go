package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/simp-lee/jwt"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/middleware"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Tokens issues and verifies session tokens. A token carries the user ID and
// role; Verify loads the account, so disabled or deleted users and role
// changes end existing sessions.
type Tokens struct {
	svc    jwt.Service
	users  domain.UserRepository
	expiry time.Duration
}

// NewTokens creates a Tokens signer. opts are passed to jwt.New after the
// lifetime settings derived from expiry.
func NewTokens(secret string, expiry time.Duration, users domain.UserRepository, opts ...jwt.Option) (*Tokens, error) {
	if users == nil {
		return nil, errors.New("auth: user repository is nil")
	}
	base := []jwt.Option{
		jwt.WithMaxTokenLifetime(expiry),
		jwt.WithUserRevocationTTL(max(expiry, jwt.DefaultUserRevocationTTL)),
	}
	svc, err := jwt.New(secret, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("auth: setup tokens: %w", err)
	}
	return &Tokens{svc: svc, users: users, expiry: expiry}, nil
}

// Issue signs a token for u.
func (t *Tokens) Issue(u *domain.User) (string, time.Time, error) {
	raw, err := t.svc.GenerateToken(strconv.FormatUint(uint64(u.ID), 10), []string{string(u.Role)}, t.expiry)
	if err != nil {
		return "", time.Time{}, err
	}
	parsed, err := t.svc.ParseToken(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	return raw, parsed.ExpiresAt, nil
}

// Verify checks raw and returns the caller behind it.
func (t *Tokens) Verify(ctx context.Context, raw string) (middleware.Identity, error) {
	tok, err := t.svc.ValidateToken(raw)
	if err != nil {
		return middleware.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(tok.UserID, 10, 64)
	if err != nil || id == 0 || len(tok.Roles) != 1 {
		return middleware.Identity{}, ErrInvalidToken
	}
	role := domain.Role(tok.Roles[0])
	if !role.Valid() {
		return middleware.Identity{}, ErrInvalidToken
	}

	u, err := t.users.GetByID(ctx, uint(id))
	switch {
	case domain.IsNotFound(err):
		return middleware.Identity{}, fmt.Errorf("%w: account not found", ErrInvalidToken)
	case err != nil:
		return middleware.Identity{}, fmt.Errorf("load account: %w", err)
	case !u.IsActive:
		return middleware.Identity{}, fmt.Errorf("%w: account disabled", ErrInvalidToken)
	case u.Role != role:
		return middleware.Identity{}, fmt.Errorf("%w: role changed", ErrInvalidToken)
	}
	return middleware.Identity{UserID: u.ID, Email: u.Email, Role: role}, nil
}

// Revoke invalidates raw before it expires.
func (t *Tokens) Revoke(raw string) error {
	if err := t.svc.RevokeToken(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// Close stops the background cleanup of revoked tokens.
func (t *Tokens) Close() {
	t.svc.Close()
}

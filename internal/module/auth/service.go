package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/domain"
)

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Me(ctx context.Context, id uint) (*domain.User, error)
	Logout(token string) error
}

type authService struct {
	users    domain.UserRepository
	tokens   *Tokens
	validate *validator.Validate
}

// NewService returns a Service that signs sessions with tokens.
func NewService(tokens *Tokens, users domain.UserRepository) Service {
	return &authService{users: users, tokens: tokens, validate: validator.New()}
}

// Login trades an email and password for a session token. An unknown
// email, a wrong password and a disabled account are indistinguishable.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	u, err := s.activeUser(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByEmail(ctx, strings.TrimSpace(email))
	})
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrUnauthorized
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}
	return &TokenResponse{Token: token, ExpiresAt: exp.Unix(), User: newUserInfo(u)}, nil
}

// Logout revokes token so it fails verification before it expires.
func (s *authService) Logout(token string) error {
	if err := s.tokens.Revoke(token); err != nil {
		return domain.ErrUnauthorized
	}
	return nil
}

// Me returns the account behind the current session.
func (s *authService) Me(ctx context.Context, id uint) (*domain.User, error) {
	return s.activeUser(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByID(ctx, id)
	})
}

// activeUser loads an account, reporting missing and disabled ones as
// unauthorized.
func (s *authService) activeUser(ctx context.Context, load func(context.Context) (*domain.User, error)) (*domain.User, error) {
	u, err := load(ctx)
	switch {
	case domain.IsNotFound(err):
		return nil, domain.ErrUnauthorized
	case err != nil:
		return nil, err
	case !u.IsActive:
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

// registration is the self-service sign-up form after trimming.
type registration struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=8"`
}

var registrationMessages = map[string]string{
	"required": "is required",
	"max":      "must not exceed 100 characters",
	"email":    "must be a valid email address",
	"min":      fmt.Sprintf("must be at least %d characters", catalog.MinPasswordLength),
}

// check reports every rejected field of r.
func (s *authService) check(r registration) error {
	errs := map[string]string{}
	var verrs validator.ValidationErrors
	if err := s.validate.Struct(r); errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs[strings.ToLower(fe.Field())] = registrationMessages[fe.Tag()]
		}
	} else if err != nil {
		return err
	}
	if _, short := errs["password"]; !short && len(r.Password) > maxPasswordBytes {
		errs["password"] = fmt.Sprintf("must not exceed %d bytes", maxPasswordBytes)
	}
	if len(errs) > 0 {
		return domain.NewFieldErrors(errs)
	}
	return nil
}

// Register creates an active viewer account.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	r := registration{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := s.check(r); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}
	u := &domain.User{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleViewer,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Package user holds the account lookups used by authentication and the
// startup administrator seed. Account screens and the users API are served
// by the generic resource module.
package user

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/module/resource"
)

// userRepository implements domain.UserRepository on top of the generic
// resource repository.
type userRepository struct {
	records *resource.Repository[domain.User]
}

// NewUserRepository creates a new UserRepository backed by the given GORM database.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{records: resource.NewRepository[domain.User](db)}
}

// Create inserts a new user into the database.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.TrimSpace(user.Email)
	return r.records.Create(ctx, user)
}

// GetByID retrieves a user by its primary key.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.records.Get(ctx, id)
}

// GetByEmail retrieves a user by email address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return r.records.FindBy(ctx, "email", email)
}

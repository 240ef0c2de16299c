package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simp-lee/pressdesk/internal/catalog"
	"github.com/simp-lee/pressdesk/internal/config"
	"github.com/simp-lee/pressdesk/internal/domain"
)

// SeedAdmin creates the configured super administrator when no account with
// that email exists yet. An empty email disables seeding. It reports whether
// an account was created.
func SeedAdmin(ctx context.Context, repo domain.UserRepository, cfg config.SeedAdminConfig, log *slog.Logger) (bool, error) {
	if cfg.Email == "" {
		return false, nil
	}
	if log == nil {
		log = slog.Default()
	}

	_, err := repo.GetByEmail(ctx, cfg.Email)
	switch {
	case err == nil:
		return false, nil
	case !domain.IsNotFound(err):
		return false, fmt.Errorf("look up seed admin: %w", err)
	}

	hash, err := catalog.HashPassword(cfg.Password)
	if err != nil {
		return false, fmt.Errorf("hash seed admin password: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	u := &domain.User{
		Name:         name,
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := repo.Create(ctx, u); err != nil {
		return false, fmt.Errorf("create seed admin: %w", err)
	}

	log.Warn("seeded administrator account, change its password",
		slog.String("email", u.Email),
		slog.Uint64("user_id", uint64(u.ID)),
	)
	return true, nil
}

// Package resource serves one managed record type: its REST API, its admin
// screens and its import/export endpoints, all driven by a catalog
// definition.
package resource

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/pressdesk/internal/domain"
)

// Repository persists records of type T using GORM.
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository creates a Repository backed by the given GORM database.
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// All returns every record in primary key order. List screens filter, sort
// and paginate the full collection in memory.
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Get retrieves a record by its primary key.
func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	var rec T
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// FindBy retrieves the first record whose column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value any) (*T, error) {
	var rec T
	if err := r.db.WithContext(ctx).Where(map[string]any{column: value}).First(&rec).Error; err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// Create inserts a new record.
func (r *Repository[T]) Create(ctx context.Context, rec *T) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Update saves all fields of an existing record.
func (r *Repository[T]) Update(ctx context.Context, rec *T) error {
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Delete removes a record by ID.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	var zero T
	result := r.db.WithContext(ctx).Delete(&zero, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateEach loads every record in ids, applies fn and saves it, all in
// one transaction. A missing ID or an error from fn rolls back the batch.
func (r *Repository[T]) UpdateEach(ctx context.Context, ids []uint, fn func(*T) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var rec T
			if err := tx.First(&rec, id).Error; err != nil {
				return err
			}
			if err := fn(&rec); err != nil {
				return err
			}
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return mapError(err)
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

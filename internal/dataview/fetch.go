package dataview

import (
	"context"
	"errors"
)

// Fetcher retrieves the full record collection for a screen.
type Fetcher[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context) ([]T, error)

func (f FetcherFunc[T]) Fetch(ctx context.Context) ([]T, error) { return f(ctx) }

// IsUnauthenticated reports whether err, or any error it wraps, signals that
// the caller's credentials were rejected.
func IsUnauthenticated(err error) bool {
	var af interface{ Unauthenticated() bool }
	return errors.As(err, &af) && af.Unauthenticated()
}

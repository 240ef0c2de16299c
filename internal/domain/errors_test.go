package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_MessageAndCause(t *testing.T) {
	cause := errors.New("record not found")
	err := NewAppError(CodeNotFound, "press pack not found", cause)

	assert.Equal(t, "press pack not found: record not found", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "press pack not found", (&AppError{Code: CodeNotFound, Message: "press pack not found"}).Error())
	assert.Nil(t, (&AppError{Code: CodeInternal}).Unwrap())
}

func TestIsHelpers_MatchByCode(t *testing.T) {
	wrapped := fmt.Errorf("approve #12: %w", NewAppError(CodeNotFound, "website not found", nil))

	assert.True(t, IsNotFound(wrapped), "a fresh AppError with the code matches")
	assert.False(t, errors.Is(wrapped, ErrNotFound), "errors.Is compares pointers")
	assert.True(t, IsAlreadyExists(ErrAlreadyExists))
	assert.True(t, IsValidation(NewFieldErrors(map[string]string{"name": "is required"})))
	assert.True(t, IsInternal(ErrInternal))
	assert.True(t, IsUnauthorized(fmt.Errorf("login: %w", ErrUnauthorized)))
	assert.True(t, IsForbidden(ErrForbidden))

	plain := errors.New("not found")
	for name, is := range map[string]func(error) bool{
		"IsNotFound": IsNotFound, "IsAlreadyExists": IsAlreadyExists, "IsValidation": IsValidation,
		"IsInternal": IsInternal, "IsUnauthorized": IsUnauthorized, "IsForbidden": IsForbidden,
	} {
		assert.False(t, is(plain), name)
		assert.False(t, is(nil), name)
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("wrapped: %w", ErrForbidden))
	assert.True(t, ok)
	assert.Equal(t, CodeForbidden, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrInternal, http.StatusInternalServerError},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("outer: %w", ErrAlreadyExists), http.StatusConflict},
		{NewAppError(ErrorCode(99), "odd", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), "%v", tt.err)
	}
}

func TestNewFieldErrors(t *testing.T) {
	err := NewFieldErrors(map[string]string{
		"price": "must be a number",
		"email": "is required",
	})

	require.True(t, IsValidation(err))
	assert.Equal(t, []FieldError{
		{Path: "email", Msg: "is required"},
		{Path: "price", Msg: "must be a number"},
	}, FieldDetails(fmt.Errorf("save: %w", err)))
	assert.Equal(t, "validation failed: email: is required; price: must be a number", err.Error())
}

func TestFieldDetails_NoDetails(t *testing.T) {
	assert.Nil(t, FieldDetails(ErrValidation))
	assert.Nil(t, FieldDetails(errors.New("plain")))
	assert.Empty(t, (&FieldErrors{}).Error())
}

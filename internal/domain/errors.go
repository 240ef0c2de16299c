package domain

import (
	"errors"
	"net/http"
	"slices"
	"strings"
)

// ErrorCode classifies an AppError.
type ErrorCode int

const (
	CodeNotFound ErrorCode = iota + 1
	CodeAlreadyExists
	CodeValidation
	CodeInternal
	CodeUnauthorized
	CodeForbidden
)

var codeStatus = map[ErrorCode]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
}

// Status is the HTTP status a handler answers with.
func (c ErrorCode) Status() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError is a failure whose Message may be shown to the caller. Err keeps
// the cause for logs.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// Sentinels for the common cases. Compare with the Is helpers, which match
// on the code, rather than errors.Is, which matches these pointers only.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized  = &AppError{Code: CodeUnauthorized, Message: "invalid credentials"}
	ErrForbidden     = &AppError{Code: CodeForbidden, Message: "forbidden"}
)

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsNotFound(err error) bool      { return hasCode(err, CodeNotFound) }
func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }
func IsValidation(err error) bool    { return hasCode(err, CodeValidation) }
func IsInternal(err error) bool      { return hasCode(err, CodeInternal) }
func IsUnauthorized(err error) bool  { return hasCode(err, CodeUnauthorized) }
func IsForbidden(err error) bool     { return hasCode(err, CodeForbidden) }

// HTTPStatusCode maps err onto a status. Errors without an AppError in
// their chain are internal.
func HTTPStatusCode(err error) int {
	if c, ok := CodeOf(err); ok {
		return c.Status()
	}
	return http.StatusInternalServerError
}

// FieldError is one rejected field of a submitted record.
type FieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// FieldErrors is the cause of the validation errors NewFieldErrors builds,
// keyed by field path.
type FieldErrors struct {
	Fields map[string]string
}

// NewFieldErrors wraps fields in a validation AppError.
func NewFieldErrors(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "validation failed",
		Err:     &FieldErrors{Fields: fields},
	}
}

// Details lists the fields in path order.
func (e *FieldErrors) Details() []FieldError {
	out := make([]FieldError, 0, len(e.Fields))
	for p, msg := range e.Fields {
		out = append(out, FieldError{Path: p, Msg: msg})
	}
	slices.SortFunc(out, func(a, b FieldError) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func (e *FieldErrors) Error() string {
	var b strings.Builder
	for i, d := range e.Details() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.Path + ": " + d.Msg)
	}
	return b.String()
}

// FieldDetails returns the field errors carried by err, or nil.
func FieldDetails(err error) []FieldError {
	var fe *FieldErrors
	if errors.As(err, &fe) {
		return fe.Details()
	}
	return nil
}

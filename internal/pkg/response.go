package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/pressdesk/internal/domain"
)

// Toast kinds understood by the client script.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Response is the JSON envelope of every API answer.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorResponse is the envelope of a failed request. Details lists the
// rejected fields of a validation failure.
type ErrorResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Code: code, Message: message, Data: data})
}

// Success answers 200 with data.
func Success(c *gin.Context, data any) { respond(c, http.StatusOK, "success", data) }

// Created answers 201 with the stored record.
func Created(c *gin.Context, data any) { respond(c, http.StatusCreated, "created", data) }

// List answers 200 with a ListResult.
func List(c *gin.Context, result any) { respond(c, http.StatusOK, "success", result) }

// Fail aborts with a bare envelope carrying code and message.
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message})
}

// Error maps err onto an HTTP status. Only *domain.AppError messages reach
// the client; anything else is reported as an internal error.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: msg,
		Error:   msg,
		Details: domain.FieldDetails(err),
	})
}

// IsHTMX reports whether htmx issued the request.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// Toast sets HX-Trigger so the page shows message. Each name in events is
// fired alongside it.
func Toast(c *gin.Context, kind, message string, events ...string) {
	trigger := map[string]any{
		"showToast": map[string]string{"message": message, "type": kind},
	}
	for _, e := range events {
		trigger[e] = true
	}
	b, _ := json.Marshal(trigger)
	c.Header("HX-Trigger", string(b))
}

// RejectHTMX aborts an htmx request with code. The page stays as it is and
// shows message as an error toast.
func RejectHTMX(c *gin.Context, code int, message string) {
	c.Header("HX-Reswap", "none")
	Toast(c, ToastError, message)
	c.AbortWithStatus(code)
}

// WantsHTML reports whether a browser is asking for a page. API routes
// always answer JSON.
func WantsHTML(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}

// errorPages are the status codes with their own errors/<code>.html page.
// Other codes use errors/500.html.
var errorPages = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusInternalServerError: true,
}

// Abort ends the request with code in the form the caller can use: a
// toast for htmx, an error page for browsers, the envelope otherwise.
func Abort(c *gin.Context, code int, message string) {
	switch {
	case IsHTMX(c):
		RejectHTMX(c, code, message)
	case WantsHTML(c):
		ErrorPage(c, code)
	default:
		Fail(c, code, message)
	}
}

// ErrorPage renders the error page for code. Without an HTML renderer it
// writes "<code> <status text>" as plain text.
func ErrorPage(c *gin.Context, code int) {
	name := "errors/500.html"
	if errorPages[code] {
		name = "errors/" + strconv.Itoa(code) + ".html"
	}
	defer func() {
		if recover() != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(strconv.Itoa(code)+" "+http.StatusText(code)))
		}
	}()
	c.Abort()
	c.HTML(code, name, gin.H{})
}

var registerFieldNames sync.Once

// BindAndValidate binds the request into obj. On failure it answers 400
// and returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	registerFieldNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(fieldName)
		}
	})
	if err := c.ShouldBind(obj); err != nil {
		bindError(c, err)
		return false
	}
	return true
}

// fieldName reports fields the way the client sent them.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "bad request",
			Error:   err.Error(),
		})
		return
	}

	details := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, domain.FieldError{Path: fe.Field(), Msg: validationMessage(fe)})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Path < details[j].Path })

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Error:   "validation error",
		Details: details,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "url", "http_url":
		return "Must be a valid URL"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "Must be greater than " + fe.Param()
	}
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the storefront packages.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrTooManyReqs    = errors.New("too many requests")
	ErrServiceUnavail = errors.New("service unavailable")
)

// kind is the API shape of a sentinel. public is the message clients see
// when nothing more specific is known; empty means the error text itself.
type kind struct {
	sentinel error
	code     string
	status   int
	public   string
}

// Checked in order; the first sentinel an error wraps decides its kind.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrConflict, "CONFLICT", http.StatusConflict, "resource conflict"},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "authentication required"},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden, "access denied"},
	{ErrTooManyReqs, "RATE_LIMITED", http.StatusTooManyRequests, "too many requests"},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "upstream service unavailable"},
}

// AppError is a structured error carrying an API code and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
		}
	}
	panic("errors: unregistered sentinel " + sentinel.Error())
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return newError(ErrForbidden, message)
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return newError(ErrConflict, message)
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *AppError {
	return newError(ErrTooManyReqs, message)
}

// ServiceUnavailable creates a 503 error for an unreachable collaborator.
// err, when non-nil, stays reachable through errors.Is/As.
func ServiceUnavailable(message string, err error) *AppError {
	e := newError(ErrServiceUnavail, message)
	e.Err = errors.Join(ErrServiceUnavail, err)
	return e
}

// Internal creates a 500 error that hides err from API clients.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Describe returns the AppError err is or wraps. Plain errors wrapping a
// sentinel get that sentinel's code and public message; anything else is
// Internal.
func Describe(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			msg := k.public
			if msg == "" {
				msg = err.Error()
			}
			return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
		}
	}
	return Internal(err)
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	return Describe(err).Status
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across the storefront.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrRemote        = errors.New("remote store rejected the request")
	ErrUnavailable   = errors.New("service unavailable")
	ErrPaymentFailed = errors.New("payment failed")
	ErrInternal      = errors.New("internal error")
)

// AppError is a structured application error carrying a machine-readable code
// and an HTTP status for the handler layer.
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

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error. Validation failures (empty selection at
// checkout, missing address, incomplete card form) all surface through this.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Remote creates a 502 error for an application-level failure reported by the
// mall backend (envelope code != 200, regardless of the HTTP status).
func Remote(code int, message string) *AppError {
	return &AppError{
		Code:    "REMOTE_ERROR",
		Message: fmt.Sprintf("backend code %d: %s", code, message),
		Status:  http.StatusBadGateway,
		Err:     ErrRemote,
	}
}

// Unavailable creates a 503 error.
func Unavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrUnavailable,
	}
}

// PaymentFailed creates a 422 error.
func PaymentFailed(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_FAILED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPaymentFailed,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus maps an error to the HTTP status the handler layer should write.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRemote):
		return http.StatusBadGateway
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

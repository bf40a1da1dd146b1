package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/commerce-platform/stock-ledger/internal/domain"
)

// AppError is the transport-facing error shape. Domain errors are mapped
// into one of these before they reach a response body.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap attaches a cause to the error and returns it
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// WithDetail adds a detail entry and returns the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeBadRequest          = "BAD_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInternal            = "INTERNAL_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrValidationWithFields creates a validation error with per-field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		Details:    fields,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrBadRequest creates a generic bad request error
func ErrBadRequest(message string) *AppError {
	return &AppError{
		Code:       CodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrNotFound creates a not found error for the named resource
func ErrNotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// ErrInsufficientStock creates a conflict error for stock shortfalls
func ErrInsufficientStock(message string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// ErrConcurrencyConflict creates a retriable conflict error
func ErrConcurrencyConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConcurrencyConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// ErrForbidden creates a forbidden error
func ErrForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// ErrInternal creates an internal server error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// ErrServiceUnavailable creates a service unavailable error
func ErrServiceUnavailable(service string) *AppError {
	return &AppError{
		Code:       CodeServiceUnavailable,
		Message:    fmt.Sprintf("%s is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// MapDomainError converts a domain error into an AppError with the right
// HTTP status. Unknown errors map to an internal error so their text does
// not leak into responses.
func MapDomainError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return ErrNotFound("stock record").Wrap(err)
	case errors.Is(err, domain.ErrReservationNotFound):
		return ErrNotFound("reservation").Wrap(err)
	case errors.Is(err, domain.ErrInsufficientStock):
		return ErrInsufficientStock(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return ErrConcurrencyConflict("stock record is being modified, retry the request").Wrap(err)
	case errors.Is(err, domain.ErrReservationClosed):
		return ErrConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnknownTransactionKind),
		errors.Is(err, domain.ErrMissingReference),
		errors.Is(err, domain.ErrNoteRequired),
		errors.Is(err, domain.ErrTrackingDisabled),
		errors.Is(err, domain.ErrInvalidRecordKey):
		return ErrValidation(err.Error()).Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}

// Package apperror defines the error taxonomy shared by the analysis pipeline
// and its HTTP boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError.
type Kind string

const (
	KindDecode          Kind = "decode_error"
	KindValidation      Kind = "validation_error"
	KindStartup         Kind = "startup_error"
	KindExternalService Kind = "external_service_error"
	KindIO              Kind = "io_error"
)

// AppError carries a Kind alongside the message and the wrapped cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
	// Timeout marks an external call that ran past its deadline.
	Timeout bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError of the given kind.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewDecodeError(message string, err error) *AppError {
	return New(KindDecode, message, err)
}

func NewValidationError(message string, err error) *AppError {
	return New(KindValidation, message, err)
}

func NewStartupError(message string, err error) *AppError {
	return New(KindStartup, message, err)
}

func NewExternalServiceError(message string, err error) *AppError {
	return New(KindExternalService, message, err)
}

// NewTimeoutError is the ExternalServiceError variant for an exceeded deadline.
func NewTimeoutError(message string, err error) *AppError {
	e := New(KindExternalService, message, err)
	e.Timeout = true
	return e
}

func NewIOError(message string, err error) *AppError {
	return New(KindIO, message, err)
}

// KindOf returns the Kind of the first AppError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsDecodeError(err error) bool          { return KindOf(err) == KindDecode }
func IsValidationError(err error) bool      { return KindOf(err) == KindValidation }
func IsStartupError(err error) bool         { return KindOf(err) == KindStartup }
func IsExternalServiceError(err error) bool { return KindOf(err) == KindExternalService }
func IsIOError(err error) bool              { return KindOf(err) == KindIO }

// IsTimeout reports whether err is an external call that hit its deadline.
func IsTimeout(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Timeout
}

// HTTPStatus maps an error to the status code returned at the HTTP boundary.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindDecode:
		return http.StatusUnprocessableEntity
	case KindExternalService:
		if IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

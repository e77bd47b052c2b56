// Package domainerrors provides coded errors for the service's domain layer.
//
// Services attach a Code when translating store sentinels or validation
// failures; transports map codes onto wire responses without inspecting
// error strings. Infrastructure layers should return pkg/platform/sentinel
// errors instead and let services wrap them here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeNotFound: a referenced donor, request, or notification does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: the resource already exists; for duplicate notifications
	// this is informational, not a failure.
	CodeConflict Code = "conflict"
	// CodeInvalidTransition: an action was attempted on a terminal or
	// incompatible state.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeIntegrityViolation: the ledger hash chain failed verification.
	// Fatal for trust in the chain; never auto-repaired.
	CodeIntegrityViolation Code = "integrity_violation"
	// CodeInvalidInput: a value failed validation at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest: the request body or parameters are malformed.
	CodeBadRequest Code = "bad_request"
	// CodeInternal: an unexpected failure; details are logged, not returned.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a coded one.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or an empty string.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// HTTPStatus maps a code to the status transports should emit.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case CodeIntegrityViolation:
		return http.StatusConflict
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

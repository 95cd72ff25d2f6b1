// Package domainerrors provides coded errors shared by all domain services.
// Services attach a Code so transport layers can translate failures into
// HTTP statuses without string matching, and so callers can distinguish
// every rejection reason (validation, authorization, state, replay,
// external dependency) from one another.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest marks malformed or invalid input, rejected before any
	// state mutation.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a caller that failed to prove an identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a proven identity that lacks the required role.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a lookup of an entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks an operation that collides with existing state,
	// such as a replayed redemption period.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks an operation incompatible with the
	// entity's current state (e.g. redeeming a defaulted bond).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks a failed or refusing external dependency.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout marks an operation aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause for
// errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or any error in its chain) carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias kept for call-site readability: dErrors.Is(err, code).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

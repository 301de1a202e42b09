package engine

import (
	"errors"
	"fmt"
)

// Code classifies engine failures for callers. Not-found, invalid-transition,
// and precondition-failed are recoverable by supplying corrected input; the
// engine never retries anything itself.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeInvalidTransition  Code = "invalid_transition"
	CodePreconditionFailed Code = "precondition_failed"
	CodeExternalFailure    Code = "external_failure"
	CodeCorruption         Code = "corruption"
)

// Error is the typed failure returned across the engine boundary.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent workspace, node, or reference.
func NotFound(format string, args ...any) *Error {
	return errf(CodeNotFound, format, args...)
}

// InvalidTransition reports a state-machine rejection.
func InvalidTransition(format string, args ...any) *Error {
	return errf(CodeInvalidTransition, format, args...)
}

// PreconditionFailed reports a guard or validation rejection.
func PreconditionFailed(format string, args ...any) *Error {
	return errf(CodePreconditionFailed, format, args...)
}

// ExternalFailure wraps a failed version-control call.
func ExternalFailure(format string, args ...any) *Error {
	return errf(CodeExternalFailure, format, args...)
}

// Corruption reports a persisted record that failed structural validation.
func Corruption(format string, args ...any) *Error {
	return errf(CodeCorruption, format, args...)
}

// CodeOf extracts the failure code from an error chain; unknown errors map to
// external_failure so nothing is silently swallowed.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeExternalFailure
}

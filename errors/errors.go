// Package errors provides coded errors for flowbox.
//
// Layout distinguishes two failure classes:
//   - fatal: broken input invariants (negative envelope width, unknown node
//     kind, missing mandatory attribute, unreachable branch). These abort the
//     layout pass and no partial result is valid.
//   - soft: resource failures. These never surface as errors from the layout
//     engine; the affected leaf degrades and layout continues.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingAttribute, "image %q has no src", name)
//	if errors.Is(err, errors.ErrCodeMissingAttribute) {
//	    // configuration problem
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes.
const (
	// Layout invariants (fatal)
	ErrCodeNegativeWidth    Code = "NEGATIVE_WIDTH"
	ErrCodeUnknownKind      Code = "UNKNOWN_KIND"
	ErrCodeMissingAttribute Code = "MISSING_ATTRIBUTE"
	ErrCodeUnreachable      Code = "UNREACHABLE"

	// Input and configuration
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeParse         Code = "PARSE"

	// Resources
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeResourceLoad Code = "RESOURCE_LOAD"

	ErrCodeInternal Code = "INTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err breaks a layout invariant.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeNegativeWidth, ErrCodeUnknownKind, ErrCodeMissingAttribute, ErrCodeUnreachable:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

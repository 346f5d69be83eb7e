// Package errors provides structured error types for monocrate.
//
// Every fatal condition the bump resolver or the publish scheduler can hit
// carries a machine-readable [Code], so the CLI can report which package and
// which stage failed while callers can still branch with [Is]:
//
//	err := errors.New(errors.ErrCodeWorkspaceNotFound, "package %s is not a member of the workspace", name)
//	if errors.Is(err, errors.ErrCodeWorkspaceNotFound) {
//	    // ...
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSubprocessFailed, origErr, "cargo publish %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Workspace errors
	ErrCodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"
	ErrCodeWorkspaceMetadata Code = "WORKSPACE_METADATA"

	// Registry errors
	ErrCodeRegistryLookup Code = "REGISTRY_LOOKUP_FAILED"

	// Operator interaction errors
	ErrCodePromptProtocol Code = "PROMPT_PROTOCOL"

	// Manifest errors
	ErrCodeManifestParse     Code = "MANIFEST_PARSE"
	ErrCodeManifestStructure Code = "MANIFEST_STRUCTURE"

	// Publish errors
	ErrCodeCycleDetected    Code = "CYCLE_DETECTED"
	ErrCodeAlreadyPublished Code = "ALREADY_PUBLISHED"
	ErrCodeSubprocessFailed Code = "SUBPROCESS_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer error with a different code does not hide an inner match.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message and cause without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

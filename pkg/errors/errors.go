// Package errors provides structured error types for the knowmap application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND / *_NOT_FOUND: Missing nodes or files
//   - NETWORK_*: Fetch failures against the content service
//   - INTERNAL_*: Unexpected internal errors
//
// Errors raised by the graph core (package kgraph) carry no code. [Classify]
// maps them onto codes at the boundary, and [HTTPStatus] maps codes onto
// HTTP status codes for the server.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDepth, "depth must be >= 0, got %d", depth)
//	if errors.Is(err, errors.ErrCodeInvalidDepth) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/matzehuels/knowmap/pkg/kgraph"
	"github.com/matzehuels/knowmap/pkg/kgraph/subgraph"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidNodeID  Code = "INVALID_NODE_ID"
	ErrCodeInvalidDepth   Code = "INVALID_DEPTH"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeMalformedInput Code = "MALFORMED_INPUT"
	ErrCodeEmptyResponse  Code = "EMPTY_RESPONSE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Graph structure errors
	ErrCodeCycle Code = "GRAPH_CYCLE"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Classify returns the code that best describes err.
//
// An explicit *Error code wins. Otherwise the graph core's sentinels, the
// extractor's depth error, missing files and context errors are recognised.
// Anything else is ErrCodeInternal. A nil error yields "".
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	if code := GetCode(err); code != "" {
		return code
	}
	var rl *RateLimitedError
	switch {
	case errors.As(err, &rl):
		return ErrCodeRateLimited
	case errors.Is(err, kgraph.ErrNodeNotFound):
		return ErrCodeNotFound
	case errors.Is(err, kgraph.ErrCycle):
		return ErrCodeCycle
	case errors.Is(err, kgraph.ErrMalformedInput), errors.Is(err, kgraph.ErrDuplicateNodeID):
		return ErrCodeMalformedInput
	case errors.Is(err, kgraph.ErrInvalidNodeID):
		return ErrCodeInvalidNodeID
	case errors.Is(err, subgraph.ErrInvalidDepth):
		return ErrCodeInvalidDepth
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeFileNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error code to the HTTP status the server responds with.
func HTTPStatus(code Code) int {
	switch code {
	case "":
		return http.StatusOK
	case ErrCodeInvalidInput, ErrCodeInvalidNodeID, ErrCodeInvalidDepth,
		ErrCodeInvalidFormat, ErrCodeMalformedInput, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeCycle:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNetwork, ErrCodeEmptyResponse:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}

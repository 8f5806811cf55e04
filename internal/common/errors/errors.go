// Package errors provides the error taxonomy shared by the starter pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigInvalid         ErrorCode = "CONFIG_INVALID"
	ErrCodeDirectoryCreateFailed ErrorCode = "DIRECTORY_CREATE_FAILED"

	ErrCodeInputMalformed  ErrorCode = "INPUT_MALFORMED"
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// NewConfigInvalidError reports a configuration value that failed validation.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryCreateError reports a working directory that could not be created.
func NewDirectoryCreateError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryCreateFailed,
		Message:   "Failed to create directory",
		Details:   fmt.Sprintf("path: %s: %v", path, err),
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewInputMalformedError reports an input record that exists but cannot be used.
func NewInputMalformedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputMalformed,
		Message:   "Input record is malformed",
		Details:   fmt.Sprintf("path: %s: %v", path, err),
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewSchemaViolationError lists the schema failures of an input record.
func NewSchemaViolationError(violations []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaViolation,
		Message:   "Input record violates schema",
		Details:   fmt.Sprintf("%v", violations),
		Metadata:  map[string]interface{}{"violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError reports a sink backend that could not be reached.
func NewStorageUnavailableError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Storage backend unavailable",
		Details:   fmt.Sprintf("backend: %s: %v", backend, err),
		Metadata:  map[string]interface{}{"backend": backend},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// CodeOf returns the code of the first StandardError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

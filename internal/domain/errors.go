// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrUnknownBackend is returned when the configured storage backend does not exist.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrSubstrateClosed is returned by a substrate used after Close.
	ErrSubstrateClosed = errors.New("storage substrate closed")

	// ErrFileNotFound is returned when an audio file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilePath is returned when an audio file path is empty or a directory.
	ErrInvalidFilePath = errors.New("invalid file path")
)

// StorageErrorKind classifies a key-value failure.
type StorageErrorKind string

const (
	KindReadFailed   StorageErrorKind = "read_failed"
	KindParseFailed  StorageErrorKind = "parse_failed"
	KindEncodeFailed StorageErrorKind = "encode_failed"
	KindWriteFailed  StorageErrorKind = "write_failed"
	KindRemoveFailed StorageErrorKind = "remove_failed"
	KindClearFailed  StorageErrorKind = "clear_failed"
)

// StorageError represents a failure of the key-value layer.
// It wraps substrate errors, recovered substrate panics and JSON failures.
type StorageError struct {
	Op   string           // Operation that failed (e.g., "get", "set", "remove", "clear")
	Key  string           // Storage key (empty for clear)
	Kind StorageErrorKind // Failure class
	Err  error            // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q failed (%s): %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, key string, kind StorageErrorKind, err error) *StorageError {
	return &StorageError{
		Op:   op,
		Key:  key,
		Kind: kind,
		Err:  err,
	}
}

// IsStorageKind reports whether err is a StorageError of the given kind.
func IsStorageKind(err error, kind StorageErrorKind) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == kind
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "AudioCacheService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a requested playlist cannot be found.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrQueueEmpty is returned when pop or peek is attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrInvalidIndex is returned when a queue or list index is out of range.
	ErrInvalidIndex = errors.New("index out of range")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrDirectoryNotFound is returned when a scan target does not exist or is not a directory.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrInvalidFilePath is returned when a file path is empty or malformed.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrUnresolvable is returned when metadata cannot be extracted from a file.
	ErrUnresolvable = errors.New("metadata unresolvable")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrScanInProgress is returned when a scan is requested while another runs.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrSearchUnavailable is returned when the external search collaborator cannot serve a query.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrInvalidRecord is returned when a persisted record does not match the expected schema.
	ErrInvalidRecord = errors.New("invalid library record")

	// ErrClosed is returned when an operation is attempted on a closed component.
	ErrClosed = errors.New("component closed")
)

// ErrorKind classifies errors by how callers are expected to react.
type ErrorKind int

const (
	// KindUnknown is any error outside the taxonomy
	KindUnknown ErrorKind = iota

	// KindNotFound covers missing files, directories, tracks and playlists
	KindNotFound

	// KindUnsupportedFormat covers unrecognized file extensions
	KindUnsupportedFormat

	// KindTransient covers recoverable collaborator failures (timeouts, process errors, empty results)
	KindTransient

	// KindInvariantViolation covers programmer errors such as popping an empty queue
	KindInvariantViolation
)

// String returns a human-readable representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindTransient:
		return "transient"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrFileNotFound),
		errors.Is(err, ErrDirectoryNotFound),
		errors.Is(err, ErrTrackNotFound),
		errors.Is(err, ErrPlaylistNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrQueueEmpty), errors.Is(err, ErrInvalidIndex):
		return KindInvariantViolation
	case errors.Is(err, ErrSearchUnavailable),
		errors.Is(err, ErrUnresolvable),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return KindTransient
	}
	return KindUnknown
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load", "delete")
	Type    string // Repository type (e.g., "library", "playlist")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository %s.%s failed: %s: %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
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
	Service string // Service name (e.g., "LibraryService", "PlaylistService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s.%s failed: %s: %v", e.Service, e.Op, e.Message, e.Err)
	}
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

// SearchError describes a failed query against the external search collaborator.
type SearchError struct {
	Query    string // Query that failed
	ExitCode int    // Process exit code (-1 if the process never ran)
	Stderr   string // Captured standard error, trimmed
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("search %q failed (exit %d): %v", e.Query, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError creates a new SearchError.
func NewSearchError(query string, exitCode int, stderr string, err error) *SearchError {
	return &SearchError{
		Query:    query,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}
}

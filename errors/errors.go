// Package errors provides error types and handling for upload operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an upload operation error with context about the operation that failed.
// It wraps the underlying transport or validation error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "start", "add", "s3.upload")
	Op string

	// TaskID is the identifier of the upload task (if applicable)
	TaskID string

	// Key is the destination object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.TaskID != "" && e.Key != "" {
		return fmt.Sprintf("upload.%s task %s (%s): %v", e.Op, e.TaskID, e.Key, e.Err)
	}
	if e.TaskID != "" {
		return fmt.Sprintf("upload.%s task %s: %v", e.Op, e.TaskID, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("upload.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("upload.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithTaskID adds task context to an existing error.
func (e *Error) WithTaskID(id string) *Error {
	e.TaskID = id
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewTaskError creates a new Error with task context.
func NewTaskError(op, taskID string, err error) *Error {
	return &Error{
		Op:     op,
		TaskID: taskID,
		Err:    err,
	}
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("upload: invalid input")

	// ErrInvalidConcurrency indicates a concurrency limit that can never admit work
	ErrInvalidConcurrency = errors.New("upload: concurrency must be greater than zero")

	// ErrInvalidObjectKey indicates that the destination object key is invalid
	ErrInvalidObjectKey = errors.New("upload: invalid object key")

	// ErrAlreadyStarted indicates that Start was called on a task that is already running
	ErrAlreadyStarted = errors.New("upload: task already started")

	// ErrCancelled indicates that the task was cancelled
	ErrCancelled = errors.New("upload: cancelled")

	// ErrRetriesExhausted indicates that every attempt allowed by the retry budget failed
	ErrRetriesExhausted = errors.New("upload: retries exhausted")

	// ErrManagerClosed indicates that the manager no longer accepts work
	ErrManagerClosed = errors.New("upload: manager closed")

	// ErrUnexpectedStatus indicates that a backend answered with a non-success HTTP status
	ErrUnexpectedStatus = errors.New("upload: unexpected response status")

	// ErrPresign indicates that a presigned upload URL could not be obtained
	ErrPresign = errors.New("upload: presign failed")
)

// IsCancelled checks if an error indicates that the upload was cancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRetriesExhausted checks if an error indicates that the retry budget was used up.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

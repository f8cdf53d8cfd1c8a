package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies orchestration errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates bad submission input, rejected synchronously.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeNotFound indicates an unknown task id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTransient indicates a retryable collaborator failure.
	ErrCodeTransient ErrorCode = "TRANSIENT_ERROR"
	// ErrCodeFatal indicates a non-retryable collaborator failure.
	ErrCodeFatal ErrorCode = "FATAL_ERROR"
	// ErrCodeTimeout indicates the task wall-clock budget was exhausted.
	ErrCodeTimeout ErrorCode = "TIMEOUT_EXCEEDED"
	// ErrCodeCancelled indicates the task was cancelled by a user.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// OpsError is the error type carried through the orchestration engine.
type OpsError struct {
	Code    ErrorCode
	Message string
	TaskID  string
	Cause   error
}

// Error implements the error interface.
func (e *OpsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *OpsError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates an error for bad submission input.
func NewValidationError(format string, args ...any) *OpsError {
	return &OpsError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates an error for an unknown task id.
func NewNotFoundError(taskID string) *OpsError {
	return &OpsError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("task not found: %s", taskID),
		TaskID:  taskID,
	}
}

// NewTransientError creates a retryable collaborator error.
func NewTransientError(message string, cause error) *OpsError {
	return &OpsError{Code: ErrCodeTransient, Message: message, Cause: cause}
}

// NewFatalError creates a non-retryable collaborator error.
func NewFatalError(message string, cause error) *OpsError {
	return &OpsError{Code: ErrCodeFatal, Message: message, Cause: cause}
}

// NewTimeoutError creates an error for an exhausted task timeout budget.
func NewTimeoutError(taskID string, timeout time.Duration) *OpsError {
	return &OpsError{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("task timed out after %v", timeout),
		TaskID:  taskID,
	}
}

// NewCancelledError creates an error for a user-cancelled task.
func NewCancelledError(taskID string) *OpsError {
	return &OpsError{
		Code:    ErrCodeCancelled,
		Message: "task cancelled by user",
		TaskID:  taskID,
	}
}

// NewShutdownError creates an error for a task aborted because the engine
// was forced to stop before the task could finish.
func NewShutdownError(taskID string) *OpsError {
	return &OpsError{
		Code:    ErrCodeCancelled,
		Message: "task aborted by engine shutdown",
		TaskID:  taskID,
	}
}

// CodeOf returns the error code of err. Errors that do not carry an
// OpsError are classified transient so unknown failures get the retry
// budget instead of failing the task outright.
func CodeOf(err error) ErrorCode {
	var opsErr *OpsError
	if errors.As(err, &opsErr) {
		return opsErr.Code
	}
	return ErrCodeTransient
}

// IsTransient reports whether err should be retried by the governor.
func IsTransient(err error) bool {
	return CodeOf(err) == ErrCodeTransient
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var opsErr *OpsError
	return errors.As(err, &opsErr) && opsErr.Code == ErrCodeValidation
}

// IsNotFound reports whether err is an unknown-task error.
func IsNotFound(err error) bool {
	var opsErr *OpsError
	return errors.As(err, &opsErr) && opsErr.Code == ErrCodeNotFound
}

// IsTimeout reports whether err is a task timeout.
func IsTimeout(err error) bool {
	var opsErr *OpsError
	return errors.As(err, &opsErr) && opsErr.Code == ErrCodeTimeout
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	var opsErr *OpsError
	return errors.As(err, &opsErr) && opsErr.Code == ErrCodeCancelled
}

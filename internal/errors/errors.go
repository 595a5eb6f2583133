// Package errors defines the domain error taxonomy shared by every layer of
// the tracker, from OS callbacks up through the client API.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure so callers can branch on it without
// string matching.
type Code string

// Error codes for the failure scenarios named in the error handling design.
const (
	// CodeIPCFailed indicates a publish, receive, or service-creation failure.
	CodeIPCFailed Code = "IPC_FAILED"

	// CodeLockContention indicates a try-lock failed within a tick.
	CodeLockContention Code = "LOCK_CONTENTION"

	// CodeInvalidCoordinates indicates a command targeted a cell outside the
	// declared grid dimensions.
	CodeInvalidCoordinates Code = "INVALID_COORDINATES"

	// CodeWindowVanished indicates an OS query on a tracked handle failed.
	CodeWindowVanished Code = "WINDOW_VANISHED"

	// CodeMonitorChanged indicates the monitor set changed at runtime.
	CodeMonitorChanged Code = "MONITOR_CHANGED"

	// CodeAnimationFailed indicates an OS reposition failed mid-animation.
	CodeAnimationFailed Code = "ANIMATION_FAILED"

	// CodeCommandTimeout indicates a client's command wait exceeded its deadline.
	CodeCommandTimeout Code = "COMMAND_TIMEOUT"

	// CodeHeartbeatStale indicates a client observed too many empty poll cycles.
	CodeHeartbeatStale Code = "HEARTBEAT_STALE"

	// CodeInvalidConfig indicates configuration validation failed.
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// CodeLoggingFailed indicates the logging subsystem failed to initialize
	// or flush.
	CodeLoggingFailed Code = "LOGGING_FAILED"

	// CodeNotFound indicates a lookup (window, layout, monitor) came up empty.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInternal indicates an unclassified internal error.
	CodeInternal Code = "INTERNAL"
)

// Error is a domain error carrying a stable code, a human-readable message,
// an optional wrapped cause, and optional structured context.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is(err, New(CodeX, "")) works regardless of message.
func (e *Error) Is(target error) bool {
	targetErr, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Code == targetErr.Code
}

// WithContext attaches a key/value pair to the error and returns it for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// Wrap wraps an existing error with a domain code and message. Returns nil
// when err is nil so call sites can write `return errors.Wrap(err, ...)`
// unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}

	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}

	return false
}

// GetCode extracts the code from a domain error, or CodeInternal otherwise.
func GetCode(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	return CodeInternal
}

// IsTransient reports whether err is potentially retryable.
func IsTransient(err error) bool {
	return IsCode(err, CodeCommandTimeout) || IsCode(err, CodeIPCFailed) || IsCode(err, CodeLockContention)
}

// IsClientFacing reports whether err should be surfaced to an IPC peer rather
// than only logged, per the propagation policy in the error handling design.
func IsClientFacing(err error) bool {
	switch GetCode(err) {
	case CodeLockContention, CodeAnimationFailed, CodeCommandTimeout, CodeHeartbeatStale:
		return false
	default:
		return true
	}
}

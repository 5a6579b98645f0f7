package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Exit codes for CLI applications.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUser indicates a user-related error (invalid input, configuration, etc.).
	ExitUser = 1

	// ExitSystem indicates a system-related error (I/O, disk full, permissions, etc.).
	ExitSystem = 2
)

// Error kinds. Use the helpers below to attach a kind to a cause so that
// callers can test for it with [Is] without losing the underlying error.
var (
	// ErrIO indicates an unreadable source, unwritable destination, or full disk.
	ErrIO = crdb.New("i/o failure")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = crdb.New("resource not found")

	// ErrIntegrity indicates a checksum mismatch or a missing backup entry.
	ErrIntegrity = crdb.New("integrity check failed")

	// ErrInvalidConfig indicates configuration validation failed.
	ErrInvalidConfig = crdb.New("invalid configuration")

	// ErrMissingName indicates a required name field is missing.
	ErrMissingName = crdb.New("name is required")
)

// Thin re-exports so packages only need to import one errors package.
var (
	New    = crdb.New
	Newf   = crdb.Newf
	Errorf = crdb.Errorf
	Wrap   = crdb.Wrap
	Wrapf  = crdb.Wrapf
	Mark   = crdb.Mark
	Is     = crdb.Is
	As     = crdb.As
	Join   = crdb.Join
)

// IOError marks err as an [ErrIO] and wraps it with msg.
func IOError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return crdb.Mark(crdb.Wrap(err, msg), ErrIO)
}

// IOErrorf is [IOError] with a format string.
func IOErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return crdb.Mark(crdb.Wrapf(err, format, args...), ErrIO)
}

// NotFoundf returns a new error marked as [ErrNotFound].
func NotFoundf(format string, args ...any) error {
	return crdb.Mark(crdb.Newf(format, args...), ErrNotFound)
}

// Integrityf returns a new error marked as [ErrIntegrity].
func Integrityf(format string, args ...any) error {
	return crdb.Mark(crdb.Newf(format, args...), ErrIntegrity)
}

// ConfigErrorf returns a new error marked as [ErrInvalidConfig].
func ConfigErrorf(format string, args ...any) error {
	return crdb.Mark(crdb.Newf(format, args...), ErrInvalidConfig)
}

// ExitError wraps an error with an exit code and optional suggestion for CLI applications.
// It implements the error interface and supports unwrapping via errors.Unwrap.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and exit code.
// If err is nil, the returned ExitError will have a nil Err field.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{
		Err:  err,
		Code: code,
	}
}

// NewUserError creates an ExitError with ExitUser code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitUser,
		Suggestion: suggestion,
	}
}

// NewSystemError creates an ExitError with ExitSystem code and a suggestion.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitSystem,
		Suggestion: suggestion,
	}
}

// NewConfigError creates an ExitError with ExitUser code and a standard suggestion.
func NewConfigError(err error) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitUser,
		Suggestion: "Check the settings file with: keepsafe job list",
	}
}

// Classify converts err into an ExitError based on its kind.
// Errors that already are ExitErrors are returned unchanged.
func Classify(err error) *ExitError {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if crdb.As(err, &exitErr) {
		return exitErr
	}
	switch {
	case crdb.Is(err, ErrIntegrity):
		return NewUserError(err, "The backup is damaged; restore from another copy")
	case crdb.Is(err, ErrNotFound):
		return NewUserError(err, "Check the path; run: keepsafe list")
	case crdb.Is(err, ErrInvalidConfig):
		return NewConfigError(err)
	case crdb.Is(err, ErrIO):
		return NewSystemError(err, "Check permissions and free disk space")
	default:
		return NewExitError(err, ExitUser)
	}
}

// Error returns the error message from the underlying error.
// If the underlying error is nil, it returns a generic message with the exit code.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As
// to examine the error chain.
func (e *ExitError) Unwrap() error {
	return e.Err
}

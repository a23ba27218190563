package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline error kinds. File-level kinds end up as the error text of a failed
// file record; job-level kinds fail the whole job.
var (
	ErrSourceUnavailable    = errors.New("source unavailable")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrMalformedModelOutput = errors.New("malformed model output")
	ErrIndexUnavailable     = errors.New("index unavailable")
	ErrOversizedInput       = errors.New("oversized input")
)

// Codes carried by AppError for the pipeline kinds above.
const (
	CodeSourceUnavailable    = "SOURCE_UNAVAILABLE"
	CodeFetchFailed          = "FETCH_FAILED"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeMalformedModelOutput = "MALFORMED_MODEL_OUTPUT"
	CodeIndexUnavailable     = "INDEX_UNAVAILABLE"
	CodeOversizedInput       = "OVERSIZED_INPUT"
	CodeConfig               = "CONFIG_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeDatabase             = "DATABASE_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// SourceUnavailable wraps err as a listing/transport failure.
func SourceUnavailable(message string, err error) error {
	return NewAppError(CodeSourceUnavailable, message, join(ErrSourceUnavailable, err))
}

func FetchFailed(message string, err error) error {
	return NewAppError(CodeFetchFailed, message, join(ErrFetchFailed, err))
}

func UnsupportedFormat(mime string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("media type %q", mime), ErrUnsupportedFormat)
}

func MalformedModelOutput(message string, err error) error {
	return NewAppError(CodeMalformedModelOutput, message, join(ErrMalformedModelOutput, err))
}

func IndexUnavailable(message string, err error) error {
	return NewAppError(CodeIndexUnavailable, message, join(ErrIndexUnavailable, err))
}

func OversizedInput(size, limit int64) error {
	return NewAppError(CodeOversizedInput, fmt.Sprintf("size %d exceeds limit %d bytes", size, limit), ErrOversizedInput)
}

// ErrorCode returns the code of the first AppError in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func join(kind, err error) error {
	if err == nil {
		return kind
	}
	return errors.Join(kind, err)
}

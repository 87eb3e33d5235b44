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
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")

	// ErrUnsupportedMediaType means the uploaded image type is not in the
	// allow-list. User-correctable; surfaced verbatim.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrStorageWriteFailed means the object store rejected the write. The
	// underlying diagnostic is preserved via wrapping; the write is not retried.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrOCRNotConfigured means a required backend credential is missing.
	// Detected before any network call so operators can alert on it separately
	// from transient backend failures.
	ErrOCRNotConfigured = errors.New("ocr backend not configured")

	// ErrOCRBackendUnavailable means every configured OCR backend failed with a
	// network or non-success response.
	ErrOCRBackendUnavailable = errors.New("ocr backend unavailable")
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

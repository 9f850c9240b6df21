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

// Pipeline error taxonomy. Only segmentation failure and total extraction
// exhaustion escape as pipeline-level failure; every other condition is
// absorbed locally and recorded as a diagnostic note.
var (
	ErrSegmentation      = errors.New("segmentation failed")
	ErrExtractionTimeout = errors.New("extraction timed out")
	ErrExtraction        = errors.New("extraction failed")
	ErrResponseMalformed = errors.New("extraction response malformed")
	ErrCacheUnavailable  = errors.New("cache unavailable")
	ErrNoItems           = errors.New("no items extracted")
	ErrInvalidInput      = errors.New("invalid input")
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
